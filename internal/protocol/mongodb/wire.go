/*
Copyright (C) 2026  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package mongodb implements the wire header and OP_MSG (2013) framing:
// length(LE), request_id, response_to, op_code,
// followed by a flag-bits field and a sequence of Body (type 0) /
// DocumentSequence (type 1) sections. Document payloads are BSON,
// decoded with go.mongodb.org/mongo-driver/bson — the gateway is the
// server, never a client, so only that subpackage is imported. Grounded
// on memcp's net.Listener accept-loop shape (scm/network.go),
// generalized to Mongo's binary header instead of HTTP's text one.
package mongodb

import (
	"bytes"
	"encoding/binary"

	"github.com/launix-de/lumadb/internal/lumaerr"
	"github.com/launix-de/lumadb/internal/protocol/common"
)

const (
	opMsg     = 2013
	opQuery   = 2004
	opReply   = 1
	opInsert  = 2002
	opUpdate  = 2001
	opDelete  = 2006

	msgFlagChecksumPresent = 1 << 0
	msgFlagMoreToCome      = 1 << 1

	sectionKindBody     = 0
	sectionKindDocSeq   = 1
)

type header struct {
	length      uint32
	requestID   uint32
	responseTo  uint32
	opCode      uint32
}

func readHeader(c *common.Conn) (header, error) {
	var buf [16]byte
	if err := c.ReadFull(buf[:]); err != nil {
		return header{}, err
	}
	return header{
		length:     binary.LittleEndian.Uint32(buf[0:4]),
		requestID:  binary.LittleEndian.Uint32(buf[4:8]),
		responseTo: binary.LittleEndian.Uint32(buf[8:12]),
		opCode:     binary.LittleEndian.Uint32(buf[12:16]),
	}, nil
}

// readOpMsgBody reads an OP_MSG payload (everything after the 16-byte
// header) and returns the first Body-section document's raw BSON bytes;
// DocumentSequence sections are skipped, since every command this
// gateway understands fits in a single body document.
func readOpMsgBody(c *common.Conn, h header) ([]byte, error) {
	if h.length < 16+4 {
		return nil, lumaerr.Protocol("mongodb: OP_MSG shorter than header+flags")
	}
	remaining := int(h.length) - 16
	buf := make([]byte, remaining)
	if err := c.ReadFull(buf); err != nil {
		return nil, err
	}
	pos := 4
	var body []byte
	for pos < len(buf) {
		kind := buf[pos]
		pos++
		switch kind {
		case sectionKindBody:
			if pos+4 > len(buf) {
				return nil, lumaerr.Protocol("mongodb: truncated body section")
			}
			docLen := int(binary.LittleEndian.Uint32(buf[pos : pos+4]))
			if pos+docLen > len(buf) {
				return nil, lumaerr.Protocol("mongodb: body section length overruns message")
			}
			if body == nil {
				body = buf[pos : pos+docLen]
			}
			pos += docLen
		case sectionKindDocSeq:
			if pos+4 > len(buf) {
				return nil, lumaerr.Protocol("mongodb: truncated document sequence section")
			}
			seqLen := int(binary.LittleEndian.Uint32(buf[pos : pos+4]))
			if pos+seqLen > len(buf) {
				return nil, lumaerr.Protocol("mongodb: document sequence length overruns message")
			}
			pos += seqLen
		default:
			return nil, lumaerr.Protocol("mongodb: unknown OP_MSG section kind")
		}
	}
	if body == nil {
		return nil, lumaerr.Protocol("mongodb: OP_MSG carries no body section")
	}
	return body, nil
}

// writeOpMsg sends a single-section OP_MSG reply carrying one BSON
// document.
func writeOpMsg(c *common.Conn, responseTo uint32, doc []byte) error {
	body := make([]byte, 0, 4+1+len(doc))
	var flags [4]byte
	body = append(body, flags[:]...)
	body = append(body, sectionKindBody)
	body = append(body, doc...)

	total := 16 + len(body)
	out := make([]byte, 0, total)
	var lenBuf, reqBuf, respBuf, opBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(total))
	binary.LittleEndian.PutUint32(reqBuf[:], 0)
	binary.LittleEndian.PutUint32(respBuf[:], responseTo)
	binary.LittleEndian.PutUint32(opBuf[:], opMsg)
	out = append(out, lenBuf[:]...)
	out = append(out, reqBuf[:]...)
	out = append(out, respBuf[:]...)
	out = append(out, opBuf[:]...)
	out = append(out, body...)
	_, err := c.Write(out)
	return err
}

// legacyQuery is OP_QUERY's body (flags, fullCollectionName, skip,
// return, query[, returnFieldsSelector]), used by old drivers both for
// genuine finds and, when fullCollectionName ends in ".$cmd", for
// command dispatch — the predecessor to OP_MSG's command channel.
type legacyQuery struct {
	collection string
	numberToReturn int32
	query      []byte
}

func readOpQueryBody(c *common.Conn, h header) (legacyQuery, error) {
	remaining := int(h.length) - 16
	buf := make([]byte, remaining)
	if err := c.ReadFull(buf); err != nil {
		return legacyQuery{}, err
	}
	if len(buf) < 4 {
		return legacyQuery{}, lumaerr.Protocol("mongodb: truncated OP_QUERY")
	}
	pos := 4 // flags
	name, n, err := readCString(buf[pos:])
	if err != nil {
		return legacyQuery{}, err
	}
	pos += n
	if pos+8 > len(buf) {
		return legacyQuery{}, lumaerr.Protocol("mongodb: truncated OP_QUERY")
	}
	numberToReturn := int32(binary.LittleEndian.Uint32(buf[pos+4 : pos+8]))
	pos += 8
	if pos+4 > len(buf) {
		return legacyQuery{}, lumaerr.Protocol("mongodb: OP_QUERY missing query document")
	}
	docLen := int(binary.LittleEndian.Uint32(buf[pos : pos+4]))
	if pos+docLen > len(buf) {
		return legacyQuery{}, lumaerr.Protocol("mongodb: OP_QUERY document length overruns message")
	}
	return legacyQuery{collection: name, numberToReturn: numberToReturn, query: buf[pos : pos+docLen]}, nil
}

// legacyWrite is the shared shape of OP_INSERT/OP_UPDATE/OP_DELETE's
// fullCollectionName + flags prefix; docs holds every trailing BSON
// document (two for OP_UPDATE's selector+update pair, one-or-more for
// OP_INSERT, one for OP_DELETE's selector).
type legacyWrite struct {
	collection string
	docs       [][]byte
}

func readOpInsertBody(c *common.Conn, h header) (legacyWrite, error) {
	buf, err := readRemaining(c, h)
	if err != nil {
		return legacyWrite{}, err
	}
	if len(buf) < 4 {
		return legacyWrite{}, lumaerr.Protocol("mongodb: truncated OP_INSERT")
	}
	name, n, err := readCString(buf[4:])
	if err != nil {
		return legacyWrite{}, err
	}
	pos := 4 + n
	docs, err := readDocSequence(buf[pos:])
	if err != nil {
		return legacyWrite{}, err
	}
	return legacyWrite{collection: name, docs: docs}, nil
}

func readOpUpdateBody(c *common.Conn, h header) (legacyWrite, error) {
	buf, err := readRemaining(c, h)
	if err != nil {
		return legacyWrite{}, err
	}
	if len(buf) < 4 {
		return legacyWrite{}, lumaerr.Protocol("mongodb: truncated OP_UPDATE")
	}
	name, n, err := readCString(buf[4:])
	if err != nil {
		return legacyWrite{}, err
	}
	pos := 4 + n + 4 // ZERO, fullCollectionName, flags
	docs, err := readDocSequence(buf[pos:])
	if err != nil {
		return legacyWrite{}, err
	}
	return legacyWrite{collection: name, docs: docs}, nil
}

func readOpDeleteBody(c *common.Conn, h header) (legacyWrite, error) {
	buf, err := readRemaining(c, h)
	if err != nil {
		return legacyWrite{}, err
	}
	if len(buf) < 4 {
		return legacyWrite{}, lumaerr.Protocol("mongodb: truncated OP_DELETE")
	}
	name, n, err := readCString(buf[4:])
	if err != nil {
		return legacyWrite{}, err
	}
	pos := 4 + n + 4 // ZERO, fullCollectionName, flags
	docs, err := readDocSequence(buf[pos:])
	if err != nil {
		return legacyWrite{}, err
	}
	return legacyWrite{collection: name, docs: docs}, nil
}

func readRemaining(c *common.Conn, h header) ([]byte, error) {
	remaining := int(h.length) - 16
	if remaining < 0 {
		return nil, lumaerr.Protocol("mongodb: negative legacy body length")
	}
	buf := make([]byte, remaining)
	if err := c.ReadFull(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func readCString(buf []byte) (string, int, error) {
	idx := bytes.IndexByte(buf, 0)
	if idx < 0 {
		return "", 0, lumaerr.Protocol("mongodb: unterminated cstring")
	}
	return string(buf[:idx]), idx + 1, nil
}

// readDocSequence walks consecutive length-prefixed BSON documents to
// the end of buf (OP_INSERT's one-or-more documents; OP_UPDATE/
// OP_DELETE's fixed two-or-one).
func readDocSequence(buf []byte) ([][]byte, error) {
	var docs [][]byte
	pos := 0
	for pos < len(buf) {
		if pos+4 > len(buf) {
			return nil, lumaerr.Protocol("mongodb: truncated legacy document")
		}
		docLen := int(binary.LittleEndian.Uint32(buf[pos : pos+4]))
		if docLen < 4 || pos+docLen > len(buf) {
			return nil, lumaerr.Protocol("mongodb: legacy document length overruns message")
		}
		docs = append(docs, buf[pos:pos+docLen])
		pos += docLen
	}
	return docs, nil
}

// writeOpReply sends a legacy OP_REPLY carrying zero or more BSON
// documents, the reply format OP_QUERY/OP_GETMORE expect.
func writeOpReply(c *common.Conn, responseTo uint32, docs [][]byte) error {
	body := make([]byte, 0, 20)
	var flags, startingFrom, numberReturned [4]byte
	body = append(body, flags[:]...)
	body = append(body, make([]byte, 8)...) // cursorID int64, always 0 (no server-side cursor)
	body = append(body, startingFrom[:]...)
	binary.LittleEndian.PutUint32(numberReturned[:], uint32(len(docs)))
	body = append(body, numberReturned[:]...)
	for _, d := range docs {
		body = append(body, d...)
	}

	total := 16 + len(body)
	out := make([]byte, 0, total)
	var lenBuf, reqBuf, respBuf, opBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(total))
	binary.LittleEndian.PutUint32(reqBuf[:], 0)
	binary.LittleEndian.PutUint32(respBuf[:], responseTo)
	binary.LittleEndian.PutUint32(opBuf[:], opReply)
	out = append(out, lenBuf[:]...)
	out = append(out, reqBuf[:]...)
	out = append(out, respBuf[:]...)
	out = append(out, opBuf[:]...)
	out = append(out, body...)
	_, err := c.Write(out)
	return err
}

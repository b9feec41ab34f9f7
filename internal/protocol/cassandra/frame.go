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

// Package cassandra implements the CQL binary protocol v4: a 9-byte
// header (version, flags, stream_id i16 BE, opcode,
// length u32 BE) big-endian throughout, followed by an opcode-specific
// body. Framing is grounded on memcp's bufio.Reader-wrapped
// net.Conn pattern (scm/mysql.go); the header layout itself, the
// STARTUP/OPTIONS/QUERY/RESULT opcodes, and the compression rule are
// grounded on original_source/lumadb-compat/crates/luma-cassandra's
// Rust precursor (protocol/mod.rs) — including one deliberate
// correction: the Rust version compresses a reply body unconditionally
// whenever a compression algorithm was negotiated; this gateway follows
// the CQL spec's own rule instead: compress only when the
// negotiated algorithm is set AND the body exceeds compressionThreshold.
package cassandra

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/launix-de/lumadb/internal/lumaerr"
	"github.com/launix-de/lumadb/internal/protocol/common"
)

const (
	opError         = 0x00
	opStartup       = 0x01
	opReady         = 0x02
	opAuthenticate  = 0x03
	opOptions       = 0x05
	opSupported     = 0x06
	opQuery         = 0x07
	opResult        = 0x08
	opPrepare       = 0x09
	opExecute       = 0x0A
	opRegister      = 0x0B
	opEvent         = 0x0C
	opBatch         = 0x0D
	opAuthChallenge = 0x0E
	opAuthResponse  = 0x0F
	opAuthSuccess   = 0x10
)

const (
	resultVoid         = int32(1)
	resultRows         = int32(2)
	resultSetKeyspace  = int32(3)
	resultPrepared     = int32(4)
	resultSchemaChange = int32(5)
)

const flagCompression = 0x01

// compressionThreshold is the body-length cutoff below which a reply is
// sent uncompressed even with an algorithm negotiated: the CQL rule is
// compress iff body length > threshold and an algorithm was negotiated.
const compressionThreshold = 512

type frame struct {
	version  byte
	flags    byte
	streamID int16
	opcode   byte
	body     []byte
}

// compression names the algorithm negotiated via STARTUP's COMPRESSION
// option. "" means none negotiated.
type compression string

const (
	compressionNone compression = ""
	compressionLZ4  compression = "lz4"
)

func readFrame(c *common.Conn, comp compression) (frame, error) {
	var hdr [9]byte
	if err := c.ReadFull(hdr[:]); err != nil {
		return frame{}, err
	}
	f := frame{
		version:  hdr[0] & 0x7F,
		flags:    hdr[1],
		streamID: int16(binary.BigEndian.Uint16(hdr[2:4])),
		opcode:   hdr[4],
	}
	length := binary.BigEndian.Uint32(hdr[5:9])
	body := make([]byte, length)
	if err := c.ReadFull(body); err != nil {
		return frame{}, err
	}
	if f.flags&flagCompression != 0 {
		decompressed, err := decompress(body, comp)
		if err != nil {
			return frame{}, err
		}
		body = decompressed
	}
	f.body = body
	return f, nil
}

func writeFrame(c *common.Conn, f frame, comp compression) error {
	body := f.body
	flags := f.flags
	if comp != compressionNone && len(body) > compressionThreshold {
		compressed, err := compress(body, comp)
		if err != nil {
			return err
		}
		body = compressed
		flags |= flagCompression
	}

	out := make([]byte, 9+len(body))
	out[0] = f.version | 0x80 // direction bit: response
	out[1] = flags
	binary.BigEndian.PutUint16(out[2:4], uint16(f.streamID))
	out[4] = f.opcode
	binary.BigEndian.PutUint32(out[5:9], uint32(len(body)))
	copy(out[9:], body)
	_, err := c.Write(out)
	return err
}

// compress/decompress use lz4's streaming Writer/Reader, the same API
// internal/storage/compression.go already uses for segment chunks,
// rather than the block-level API — one lz4 usage idiom across the
// whole gateway.
func compress(body []byte, comp compression) ([]byte, error) {
	switch comp {
	case compressionLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(body); err != nil {
			return nil, lumaerr.Protocol("cassandra: lz4 compress: " + err.Error())
		}
		if err := w.Close(); err != nil {
			return nil, lumaerr.Protocol("cassandra: lz4 compress: " + err.Error())
		}
		return buf.Bytes(), nil
	default:
		return body, nil
	}
}

func decompress(body []byte, comp compression) ([]byte, error) {
	switch comp {
	case compressionLZ4:
		r := lz4.NewReader(bytes.NewReader(body))
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, lumaerr.Protocol("cassandra: lz4 decompress: " + err.Error())
		}
		return out, nil
	default:
		return body, nil
	}
}

// --- native protocol primitive encoding (CQL binary v4, §3 of the CQL spec) ---

func putInt(buf []byte, v int32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return append(buf, b[:]...)
}

func putShort(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

func putString(buf []byte, s string) []byte {
	buf = putShort(buf, uint16(len(s)))
	return append(buf, s...)
}

func putLongString(buf []byte, s string) []byte {
	buf = putInt(buf, int32(len(s)))
	return append(buf, s...)
}

func putBytes(buf []byte, b []byte, null bool) []byte {
	if null {
		return putInt(buf, -1)
	}
	buf = putInt(buf, int32(len(b)))
	return append(buf, b...)
}

func putStringMultimap(buf []byte, m map[string][]string) []byte {
	buf = putShort(buf, uint16(len(m)))
	for k, vs := range m {
		buf = putString(buf, k)
		buf = putShort(buf, uint16(len(vs)))
		for _, v := range vs {
			buf = putString(buf, v)
		}
	}
	return buf
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) int32() (int32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, lumaerr.Protocol("cassandra: truncated [int]")
	}
	v := int32(binary.BigEndian.Uint32(r.buf[r.pos : r.pos+4]))
	r.pos += 4
	return v, nil
}

func (r *reader) uint16() (uint16, error) {
	if r.pos+2 > len(r.buf) {
		return 0, lumaerr.Protocol("cassandra: truncated [short]")
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos : r.pos+2])
	r.pos += 2
	return v, nil
}

func (r *reader) byte() (byte, error) {
	if r.pos+1 > len(r.buf) {
		return 0, lumaerr.Protocol("cassandra: truncated byte")
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) string() (string, error) {
	n, err := r.uint16()
	if err != nil {
		return "", err
	}
	if r.pos+int(n) > len(r.buf) {
		return "", lumaerr.Protocol("cassandra: truncated [string]")
	}
	s := string(r.buf[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

func (r *reader) longString() (string, error) {
	n, err := r.int32()
	if err != nil {
		return "", err
	}
	if n < 0 || r.pos+int(n) > len(r.buf) {
		return "", lumaerr.Protocol("cassandra: truncated [long string]")
	}
	s := string(r.buf[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

func (r *reader) stringMap() (map[string]string, error) {
	n, err := r.uint16()
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, n)
	for i := 0; i < int(n); i++ {
		k, err := r.string()
		if err != nil {
			return nil, err
		}
		v, err := r.string()
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

// bytesValue reads a QUERY bind parameter: [int length][bytes], -1 means
// NULL, -2 means "not set" (CQL v4 unset marker).
func (r *reader) bytesValue() ([]byte, bool, error) {
	n, err := r.int32()
	if err != nil {
		return nil, false, err
	}
	if n < 0 {
		return nil, true, nil
	}
	if r.pos+int(n) > len(r.buf) {
		return nil, false, lumaerr.Protocol("cassandra: truncated [bytes] value")
	}
	b := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return b, false, nil
}

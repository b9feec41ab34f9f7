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

// Package postgres implements the Postgres v3 frontend/backend protocol:
// a length-prefixed startup message (big-endian,
// length field includes itself), Authentication*/ParameterStatus/
// BackendKeyData/ReadyForQuery handshake, then simple-query (Q) request/
// response framing. Grounded on memcp's net.Listener accept loop
// shape (scm/network.go), generalized from HTTP to Postgres's
// type-byte-prefixed message framing. The package has no tests of its
// own and does not import lib/pq.
package postgres

import (
	"bytes"
	"encoding/binary"

	"github.com/launix-de/lumadb/internal/protocol/common"
)

// writeMessage sends one backend message: a type byte followed by a
// big-endian length that counts itself plus payload. The untyped
// one-byte SSL/GSSENC decline is written directly, not through here.
func writeMessage(c *common.Conn, kind byte, payload []byte) error {
	var buf bytes.Buffer
	buf.WriteByte(kind)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)+4))
	buf.Write(lenBuf[:])
	buf.Write(payload)
	_, err := c.Write(buf.Bytes())
	return err
}

func int32be(v int32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return b[:]
}

func int16be(v int16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(v))
	return b[:]
}

func cstring(s string) []byte { return append([]byte(s), 0) }

// readStartupBody reads length.BE-4 bytes following a 4-byte length
// header already consumed by the caller (the startup message has no
// leading type byte, unlike every later frontend message).
func readStartupBody(c *common.Conn, length uint32) ([]byte, error) {
	body := make([]byte, length-4)
	if err := c.ReadFull(body); err != nil {
		return nil, err
	}
	return body, nil
}

// parseStartupParams splits the key\0value\0...\0 tail of a startup
// packet (after the 4-byte protocol version) into a map.
func parseStartupParams(body []byte) map[string]string {
	params := map[string]string{}
	parts := bytes.Split(body, []byte{0})
	for i := 0; i+1 < len(parts); i += 2 {
		if len(parts[i]) == 0 {
			break
		}
		params[string(parts[i])] = string(parts[i+1])
	}
	return params
}

// readFrontendMessage reads one post-startup message: a type byte, a
// big-endian length (including itself), then length-4 bytes of payload.
func readFrontendMessage(c *common.Conn) (byte, []byte, error) {
	kind, err := c.ReadByte()
	if err != nil {
		return 0, nil, err
	}
	length, err := c.ReadUint32BE()
	if err != nil {
		return 0, nil, err
	}
	payload := make([]byte, length-4)
	if err := c.ReadFull(payload); err != nil {
		return 0, nil, err
	}
	return kind, payload, nil
}

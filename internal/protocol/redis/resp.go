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

// Package redis implements the RESP wire protocol: a
// request is an array of bulk strings, dispatched by its first element
// uppercased; a reply is one of Simple-String/Error/Integer/Bulk-String/
// Array. Grounded on memcp's plain net.Listener accept loop
// (scm/network.go's HTTPServe), generalized from HTTP request/response
// to RESP request/response framing.
package redis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/launix-de/lumadb/internal/protocol/common"
)

// readCommand reads one RESP array-of-bulk-strings request.
// Inline commands (a bare CRLF-terminated line with no
// leading '*') are also accepted, matching real Redis clients used for
// manual testing.
func readCommand(c *common.Conn) ([]string, error) {
	line, err := c.ReadLine()
	if err != nil {
		return nil, err
	}
	if len(line) == 0 {
		return readCommand(c)
	}
	if line[0] != '*' {
		return strings.Fields(line), nil
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil || n < 0 {
		return nil, fmt.Errorf("redis: malformed array header %q", line)
	}
	args := make([]string, n)
	for i := 0; i < n; i++ {
		hdr, err := c.ReadLine()
		if err != nil {
			return nil, err
		}
		if len(hdr) == 0 || hdr[0] != '$' {
			return nil, fmt.Errorf("redis: expected bulk string header, got %q", hdr)
		}
		size, err := strconv.Atoi(hdr[1:])
		if err != nil {
			return nil, fmt.Errorf("redis: malformed bulk length %q", hdr)
		}
		if size < 0 {
			args[i] = ""
			continue
		}
		buf := make([]byte, size+2) // payload + trailing CRLF
		if err := c.ReadFull(buf); err != nil {
			return nil, err
		}
		args[i] = string(buf[:size])
	}
	return args, nil
}

func simpleString(s string) []byte { return []byte("+" + s + "\r\n") }
func errorReply(s string) []byte   { return []byte("-" + s + "\r\n") }
func integerReply(n int) []byte    { return []byte(":" + strconv.Itoa(n) + "\r\n") }

func bulkString(s string, ok bool) []byte {
	if !ok {
		return []byte("$-1\r\n")
	}
	return []byte("$" + strconv.Itoa(len(s)) + "\r\n" + s + "\r\n")
}

func arrayHeader(n int) []byte { return []byte("*" + strconv.Itoa(n) + "\r\n") }

func arrayOfBulk(items []string) []byte {
	var buf []byte
	buf = append(buf, arrayHeader(len(items))...)
	for _, it := range items {
		buf = append(buf, bulkString(it, true)...)
	}
	return buf
}

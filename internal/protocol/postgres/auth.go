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

package postgres

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"

	"github.com/launix-de/lumadb/internal/lumaerr"
	"github.com/launix-de/lumadb/internal/protocol/common"
)

// md5Hex returns the lowercase hex digest of b, the building block of
// Postgres's double-MD5 challenge.
func md5Hex(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

// expectedMD5Response computes "md5" + md5(md5(password+user)+salt),
// the exact string a conforming client sends back.
func expectedMD5Response(user, password string, salt [4]byte) string {
	inner := md5Hex([]byte(password + user))
	outer := md5Hex(append([]byte(inner), salt[:]...))
	return "md5" + outer
}

// authenticateMD5 sends an AuthenticationMD5Password challenge and
// verifies the client's response against the configured password for
// user. Returns an Auth error on mismatch
func authenticateMD5(c *common.Conn, user, password string) error {
	var salt [4]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return lumaerr.Io("postgres: generating MD5 salt", err)
	}
	if err := writeMessage(c, 'R', append(int32be(5), salt[:]...)); err != nil {
		return lumaerr.Io("postgres: writing AuthenticationMD5Password", err)
	}
	kind, payload, err := readFrontendMessage(c)
	if err != nil {
		return lumaerr.Io("postgres: reading password response", err)
	}
	if kind != 'p' {
		return lumaerr.Protocol("postgres: expected PasswordMessage ('p')")
	}
	response := string(trimNul(payload))
	if response != expectedMD5Response(user, password, salt) {
		return lumaerr.Auth("postgres: password authentication failed for user " + user)
	}
	return nil
}

func trimNul(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == 0 {
		return b[:n-1]
	}
	return b
}

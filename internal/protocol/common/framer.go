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

// Package common holds the framing and connection-lifecycle plumbing
// shared by every wire protocol in internal/protocol: reading
// fixed-width length-prefixed headers and bodies through one buffered
// reader (each read blocks until all requested bytes arrive),
// an idle read timeout, and the State enum every protocol's connection
// loop advances through. Each protocol still owns its
// own header layout (endianness and field widths differ across
// Postgres/MySQL/MongoDB/Cassandra), but they all read through the same
// net.Conn + bufio.Reader shape memcp uses in scm/network.go's
// HTTP listener and scm/mysql.go's driver.NewListener wrapper.
package common

import (
	"bufio"
	"encoding/binary"
	"io"
	"net"
	"time"
)

// State is the connection-scoped state machine position shared across
// every protocol: Handshake -> Authenticating -> Ready
// -> (InTransaction|InCursor)* -> Closed.
type State uint8

const (
	StateHandshake State = iota
	StateAuthenticating
	StateReady
	StateInTransaction
	StateInCursor
	StateClosed
)

// Conn wraps a net.Conn with a buffered reader and the connection's
// read-idle timeout, shared by every protocol handler's accept loop.
type Conn struct {
	net.Conn
	R           *bufio.Reader
	IdleTimeout time.Duration
}

func NewConn(c net.Conn, idleTimeout time.Duration) *Conn {
	return &Conn{Conn: c, R: bufio.NewReaderSize(c, 16*1024), IdleTimeout: idleTimeout}
}

// armDeadline applies the connection's read-idle timeout before a
// blocking read; persistent SQL sessions may set IdleTimeout to zero,
// which disables the deadline entirely.
func (c *Conn) armDeadline() {
	if c.IdleTimeout > 0 {
		c.SetReadDeadline(time.Now().Add(c.IdleTimeout))
	}
}

// ReadFull reads exactly len(buf) bytes, arming the idle deadline first.
func (c *Conn) ReadFull(buf []byte) error {
	c.armDeadline()
	_, err := io.ReadFull(c.R, buf)
	return err
}

// ReadByte reads a single byte under the idle deadline.
func (c *Conn) ReadByte() (byte, error) {
	c.armDeadline()
	return c.R.ReadByte()
}

// ReadUint32BE reads a 4-byte big-endian length (Postgres, Cassandra).
func (c *Conn) ReadUint32BE() (uint32, error) {
	var buf [4]byte
	if err := c.ReadFull(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// ReadUint32LE reads a 4-byte little-endian length (MongoDB).
func (c *Conn) ReadUint32LE() (uint32, error) {
	var buf [4]byte
	if err := c.ReadFull(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// ReadUint24LE reads MySQL's 3-byte little-endian payload length.
func (c *Conn) ReadUint24LE() (uint32, error) {
	var buf [3]byte
	if err := c.ReadFull(buf[:]); err != nil {
		return 0, err
	}
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16, nil
}

// ReadUint16BE reads a 2-byte big-endian field (Cassandra stream id,
// consistency level).
func (c *Conn) ReadUint16BE() (uint16, error) {
	var buf [2]byte
	if err := c.ReadFull(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

// ReadLine reads up to and including a CRLF, trimming it off, for
// Redis's RESP text framing.
func (c *Conn) ReadLine() (string, error) {
	c.armDeadline()
	line, err := c.R.ReadString('\n')
	if err != nil {
		return "", err
	}
	if n := len(line); n >= 2 && line[n-2] == '\r' {
		return line[:n-2], nil
	}
	if n := len(line); n >= 1 && line[n-1] == '\n' {
		return line[:n-1], nil
	}
	return line, nil
}

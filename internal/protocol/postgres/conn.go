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
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/launix-de/lumadb/internal/executor"
	"github.com/launix-de/lumadb/internal/ir"
	"github.com/launix-de/lumadb/internal/lumaerr"
	"github.com/launix-de/lumadb/internal/metrics"
	"github.com/launix-de/lumadb/internal/protocol/common"
	"github.com/launix-de/lumadb/internal/translator"
)

const (
	protoVersion3   = 0x00030000
	sslRequestCode  = 80877103
	cancelRequest   = 80877102
	gssEncRequest   = 80877104
)

// Server owns the shared Engine, metrics and optional MD5 credential
// map every accepted connection authenticates against; an empty
// Credentials map means Trust auth.
type Server struct {
	Engine      *executor.Engine
	Metrics     *metrics.Metrics
	Log         *logrus.Logger
	Credentials map[string]string
}

func (s *Server) Serve(nc net.Conn) {
	defer nc.Close()
	c := common.NewConn(nc, 0)

	user, err := s.handshake(c)
	if err != nil {
		s.Log.WithError(err).Warn("postgres: handshake failed")
		return
	}

	if err := writeMessage(c, 'Z', []byte{'I'}); err != nil {
		return
	}

	for {
		kind, payload, err := readFrontendMessage(c)
		if err != nil {
			return
		}
		switch kind {
		case 'Q':
			s.simpleQuery(c, user, string(trimNul(payload)))
		case 'X':
			return
		default:
			s.sendError(c, lumaerr.Protocol(fmt.Sprintf("postgres: unsupported message type %q", kind)))
			return
		}
	}
}

// handshake consumes the startup packet (retrying past SSLRequest/
// GSSENCRequest negotiation, both declined) and runs Trust or MD5 auth,
// finishing with ParameterStatus*/BackendKeyData
func (s *Server) handshake(c *common.Conn) (string, error) {
	for {
		length, err := c.ReadUint32BE()
		if err != nil {
			return "", lumaerr.Io("postgres: reading startup length", err)
		}
		body, err := readStartupBody(c, length)
		if err != nil {
			return "", lumaerr.Io("postgres: reading startup body", err)
		}
		if len(body) < 4 {
			return "", lumaerr.Protocol("postgres: startup message too short")
		}
		version := uint32(body[0])<<24 | uint32(body[1])<<16 | uint32(body[2])<<8 | uint32(body[3])
		switch version {
		case sslRequestCode, gssEncRequest:
			if _, err := c.Write([]byte{'N'}); err != nil {
				return "", lumaerr.Io("postgres: declining SSL/GSS", err)
			}
			continue
		case cancelRequest:
			return "", lumaerr.Protocol("postgres: CancelRequest not supported on this connection")
		}
		params := parseStartupParams(body[4:])
		user := params["user"]

		if len(s.Credentials) > 0 {
			want, ok := s.Credentials[user]
			if !ok {
				return "", lumaerr.Auth("postgres: unknown user " + user)
			}
			if err := authenticateMD5(c, user, want); err != nil {
				s.sendError(c, err)
				return "", err
			}
		}
		if err := writeMessage(c, 'R', int32be(0)); err != nil {
			return "", err
		}
		for _, kv := range [][2]string{{"server_version", "14.0 (lumadb)"}, {"client_encoding", "UTF8"}} {
			if err := writeMessage(c, 'S', append(cstring(kv[0]), cstring(kv[1])...)); err != nil {
				return "", err
			}
		}
		if err := writeMessage(c, 'K', append(int32be(0), int32be(0)...)); err != nil {
			return "", err
		}
		return user, nil
	}
}

func (s *Server) simpleQuery(c *common.Conn, user, query string) {
	start := time.Now()
	queryType := statementKind(query)
	defer func() { s.Metrics.ObserveQuery("postgres", queryType, time.Since(start).Seconds()) }()

	plan, err := translator.Translate(query)
	if err != nil {
		s.sendError(c, err)
		writeMessage(c, 'Z', []byte{'I'})
		return
	}
	batch, err := s.Engine.Exec(plan)
	if err != nil {
		s.sendError(c, err)
		writeMessage(c, 'Z', []byte{'I'})
		return
	}
	if err := writeRowDescription(c, batch.Columns); err != nil {
		return
	}
	for i := 0; i < batch.Rows(); i++ {
		if err := writeDataRow(c, batch.Row(i)); err != nil {
			return
		}
	}
	tag := fmt.Sprintf("%s %d", strings.ToUpper(queryType), batch.Rows())
	if err := writeMessage(c, 'C', cstring(tag)); err != nil {
		return
	}
	writeMessage(c, 'Z', []byte{'I'})
}

func statementKind(q string) string {
	f := strings.Fields(q)
	if len(f) == 0 {
		return "unknown"
	}
	return strings.ToLower(f[0])
}

func (s *Server) sendError(c *common.Conn, err error) {
	fields := []byte{'S'}
	fields = append(fields, cstring("ERROR")...)
	fields = append(fields, 'C')
	fields = append(fields, cstring(pgSQLState(err))...)
	fields = append(fields, 'M')
	fields = append(fields, cstring(err.Error())...)
	fields = append(fields, 0)
	writeMessage(c, 'E', fields)
}

func pgSQLState(err error) string {
	switch lumaerr.KindOf(err) {
	case lumaerr.KindAuth:
		return "28P01"
	case lumaerr.KindTranslator:
		return "42601"
	default:
		return "XX000"
	}
}

// writeRowDescription sends column metadata, reporting every column as
// OID 25 (text) since the simple-query protocol answers in text form
// regardless of the underlying ir.Value kind.
func writeRowDescription(c *common.Conn, columns []string) error {
	var payload []byte
	payload = append(payload, int16be(int16(len(columns)))...)
	for _, col := range columns {
		payload = append(payload, cstring(col)...)
		payload = append(payload, int32be(0)...)  // table OID
		payload = append(payload, int16be(0)...)  // column attnum
		payload = append(payload, int32be(25)...) // type OID: text
		payload = append(payload, int16be(-1)...) // type size: variable
		payload = append(payload, int32be(-1)...) // type modifier
		payload = append(payload, int16be(0)...)  // format: text
	}
	return writeMessage(c, 'T', payload)
}

func writeDataRow(c *common.Conn, row []ir.Value) error {
	var payload []byte
	payload = append(payload, int16be(int16(len(row)))...)
	for _, v := range row {
		if v.IsNull() {
			payload = append(payload, int32be(-1)...)
			continue
		}
		text := valueToText(v)
		payload = append(payload, int32be(int32(len(text)))...)
		payload = append(payload, text...)
	}
	return writeMessage(c, 'D', payload)
}

func valueToText(v ir.Value) []byte {
	switch v.Kind() {
	case ir.KindBool:
		if v.Bool() {
			return []byte("t")
		}
		return []byte("f")
	case ir.KindInt:
		return []byte(strconv.FormatInt(v.Int(), 10))
	case ir.KindFloat:
		return []byte(strconv.FormatFloat(v.Float(), 'g', -1, 64))
	case ir.KindDecimal:
		return []byte(v.Decimal().String())
	case ir.KindBytes:
		return v.Bytes()
	case ir.KindUUID:
		return []byte(v.UUID().String())
	case ir.KindTimestamp, ir.KindDate, ir.KindTime:
		return []byte(v.Time().Format("2006-01-02 15:04:05.999999"))
	default:
		return []byte(v.Text())
	}
}

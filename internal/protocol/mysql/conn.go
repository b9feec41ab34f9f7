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

// Package mysql implements the MySQL wire protocol
// (3-byte little-endian payload length + 1-byte sequence id, Handshake
// v10 + scramble auth, text-protocol result sets) by driving
// third_party go-mysqlstack's driver.Listener/driver.Handler, exactly
// as memcp's scm/mysql.go does — only the query callback is
// replaced, swapping memcp's SCM Apply(m.querycallback, ...) for
// this gateway's translator.Translate + executor.Engine.Exec.
package mysql

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/launix-de/go-mysqlstack/driver"
	querypb "github.com/launix-de/go-mysqlstack/sqlparser/depends/query"
	"github.com/launix-de/go-mysqlstack/sqlparser/depends/sqltypes"
	"github.com/launix-de/go-mysqlstack/xlog"

	"github.com/launix-de/lumadb/internal/connmgr"
	"github.com/launix-de/lumadb/internal/executor"
	"github.com/launix-de/lumadb/internal/ir"
	"github.com/launix-de/lumadb/internal/metrics"
	"github.com/launix-de/lumadb/internal/translator"
)

// Handler implements driver.Handler against the shared Engine.
// Credentials maps username to its SHA1(password) digest, computed with
// driver.CreatePassword; a nil/empty map accepts every user (Trust
// auth), matching the Postgres package's same default.
type Handler struct {
	Engine      *executor.Engine
	Metrics     *metrics.Metrics
	Log         *logrus.Logger
	Credentials map[string][]byte
	Sem         *connmgr.Semaphore

	// releases maps an in-flight session id to its semaphore release
	// function; go-mysqlstack identifies sessions by a server-assigned
	// uint32 rather than exposing a per-connection closure scope the way
	// connmgr.Listen's goroutine body does for the other protocols.
	releases sync.Map
}

// ListenAndServe starts go-mysqlstack's own accept loop; it owns the
// net.Listener internally, so connmgr.Semaphore is threaded through
// SessionCheck/SessionClosed instead of connmgr.Listen.
func (h *Handler) ListenAndServe(addr string) error {
	log := xlog.NewStdLog(xlog.Level(xlog.INFO))
	lis, err := driver.NewListener(log, addr, h)
	if err != nil {
		return fmt.Errorf("mysql: listen %s: %w", addr, err)
	}
	lis.Accept()
	return nil
}

func (h *Handler) ServerVersion() string    { return "lumadb" }
func (h *Handler) SetServerVersion()        {}
func (h *Handler) NewSession(*driver.Session) {}

func (h *Handler) SessionInc(*driver.Session) {}
func (h *Handler) SessionDec(*driver.Session) {}

func (h *Handler) SessionClosed(session *driver.Session) {
	if r, ok := h.releases.LoadAndDelete(session.ID()); ok {
		r.(func())()
	}
}

// SessionCheck is the earliest hook go-mysqlstack offers per connection
// (run before auth); used to enforce max_connections
// (an attempt to acquire when the semaphore is closed/full fails and
// the connection is rejected).
func (h *Handler) SessionCheck(session *driver.Session) error {
	release, ok := h.Sem.TryAcquire()
	if !ok {
		return fmt.Errorf("mysql: too many connections")
	}
	h.releases.Store(session.ID(), release)
	return nil
}

func (h *Handler) AuthCheck(session *driver.Session) error {
	if len(h.Credentials) == 0 {
		return nil
	}
	want, ok := h.Credentials[session.User()]
	if !ok {
		return fmt.Errorf("mysql: unknown user %s", session.User())
	}
	if !session.TestPassword(want) {
		return fmt.Errorf("mysql: access denied for user %s", session.User())
	}
	return nil
}

func (h *Handler) ComInitDB(session *driver.Session, database string) error {
	session.SetSchema(database)
	return nil
}

func (h *Handler) ComQuery(session *driver.Session, query string, bindVariables map[string]*querypb.BindVariable, callback func(*sqltypes.Result) error) error {
	start := time.Now()
	plan, err := translator.Translate(query)
	if err != nil {
		h.Metrics.ObserveQuery("mysql", "error", time.Since(start).Seconds())
		return err
	}
	batch, err := h.Engine.Exec(plan)
	if err != nil {
		h.Metrics.ObserveQuery("mysql", queryKind(query), time.Since(start).Seconds())
		return err
	}
	h.Metrics.ObserveQuery("mysql", queryKind(query), time.Since(start).Seconds())

	if len(batch.Columns) == 0 {
		return callback(&sqltypes.Result{State: sqltypes.RStateNone})
	}

	result := sqltypes.Result{State: sqltypes.RStateNone}
	result.Fields = make([]*querypb.Field, len(batch.Columns))
	for i, c := range batch.Columns {
		result.Fields[i] = &querypb.Field{Name: c, Type: querypb.Type_TEXT}
	}
	result.Rows = make([][]sqltypes.Value, batch.Rows())
	for i := 0; i < batch.Rows(); i++ {
		row := batch.Row(i)
		out := make([]sqltypes.Value, len(row))
		for j, v := range row {
			out[j] = valueToMySQL(v)
		}
		result.Rows[i] = out
	}
	result.RowsAffected = uint64(batch.Rows())
	return callback(&result)
}

func queryKind(q string) string {
	if len(q) == 0 {
		return "unknown"
	}
	for i, c := range q {
		if c == ' ' {
			return q[:i]
		}
	}
	return q
}

func valueToMySQL(v ir.Value) sqltypes.Value {
	switch v.Kind() {
	case ir.KindNull:
		return sqltypes.MakeTrusted(querypb.Type_NULL_TYPE, nil)
	case ir.KindBool:
		if v.Bool() {
			return sqltypes.NewInt32(1)
		}
		return sqltypes.NewInt32(0)
	case ir.KindInt:
		return sqltypes.NewInt64(v.Int())
	case ir.KindFloat:
		return sqltypes.NewFloat64(v.Float())
	case ir.KindBytes:
		return sqltypes.MakeTrusted(querypb.Type_TEXT, v.Bytes())
	default:
		return sqltypes.NewVarChar(textOf(v))
	}
}

func textOf(v ir.Value) string {
	switch v.Kind() {
	case ir.KindDecimal:
		return v.Decimal().String()
	case ir.KindTimestamp, ir.KindDate, ir.KindTime:
		return v.Time().Format("2006-01-02 15:04:05.999999")
	case ir.KindUUID:
		return v.UUID().String()
	default:
		return v.Text()
	}
}

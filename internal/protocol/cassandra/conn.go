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

package cassandra

import (
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/launix-de/lumadb/internal/executor"
	"github.com/launix-de/lumadb/internal/ir"
	"github.com/launix-de/lumadb/internal/lumaerr"
	"github.com/launix-de/lumadb/internal/metrics"
	"github.com/launix-de/lumadb/internal/protocol/common"
	"github.com/launix-de/lumadb/internal/translator"
)

// Server owns the shared Engine and metrics every accepted CQL
// connection uses. PREPARE/EXECUTE are supported without real
// server-side statement caching: PREPARE hands back the query text
// itself as the opaque prepared-statement id, and EXECUTE re-translates
// it on every call — correct, if not as fast as real Cassandra's
// pre-parsed execution, and consistent with this gateway's minimal
// translator (internal/translator) having no bind-parameter support to
// cache anyway.
type Server struct {
	Engine  *executor.Engine
	Metrics *metrics.Metrics
	Log     *logrus.Logger
}

func (s *Server) Serve(nc net.Conn) {
	defer nc.Close()
	c := common.NewConn(nc, 0)

	var writeMu sync.Mutex
	comp := compressionNone

	for {
		f, err := readFrame(c, comp)
		if err != nil {
			return
		}
		reply, newComp, closeConn := s.dispatch(f, comp)
		if newComp != "" {
			comp = newComp
		}
		writeMu.Lock()
		werr := writeFrame(c, reply, comp)
		writeMu.Unlock()
		if werr != nil || closeConn {
			return
		}
	}
}

func (s *Server) dispatch(f frame, comp compression) (reply frame, negotiatedComp compression, closeConn bool) {
	start := time.Now()
	defer func() { s.Metrics.ObserveQuery("cassandra", opcodeName(f.opcode), time.Since(start).Seconds()) }()

	switch f.opcode {
	case opStartup:
		opts, err := (&reader{buf: f.body}).stringMap()
		if err != nil {
			return errorFrame(f, err), "", true
		}
		nc := compressionNone
		if algo := strings.ToLower(opts["COMPRESSION"]); algo == string(compressionLZ4) {
			nc = compressionLZ4
		}
		return frame{version: f.version, streamID: f.streamID, opcode: opReady}, nc, false

	case opOptions:
		body := putStringMultimap(nil, map[string][]string{
			"CQL_VERSION": {"3.4.0"},
			"COMPRESSION": {string(compressionLZ4)},
		})
		return frame{version: f.version, streamID: f.streamID, opcode: opSupported, body: body}, "", false

	case opRegister:
		return frame{version: f.version, streamID: f.streamID, opcode: opReady}, "", false

	case opQuery:
		query, _, err := readQueryBody(f.body)
		if err != nil {
			return errorFrame(f, err), "", false
		}
		return s.execute(f, query), "", false

	case opPrepare:
		r := &reader{buf: f.body}
		query, err := r.longString()
		if err != nil {
			return errorFrame(f, err), "", false
		}
		return preparedResultFrame(f, query), "", false

	case opExecute:
		r := &reader{buf: f.body}
		id, _, err := r.bytesValue()
		if err != nil {
			return errorFrame(f, err), "", false
		}
		return s.execute(f, string(id)), "", false

	case opBatch:
		return s.executeBatch(f), "", false

	default:
		return errorFrame(f, lumaerr.Protocol("cassandra: unsupported opcode")), "", true
	}
}

// readQueryBody parses QUERY's body: [long string]query + [short]
// consistency + [byte] flags, optionally followed by bind values. This
// gateway's translator has no bind-parameter support, so values (if
// present) are parsed only to advance past them correctly; they are not
// substituted into the query text.
func readQueryBody(body []byte) (query string, consistency uint16, err error) {
	r := &reader{buf: body}
	query, err = r.longString()
	if err != nil {
		return "", 0, err
	}
	consistency, err = r.uint16()
	if err != nil {
		return "", 0, err
	}
	flags, err := r.byte()
	if err != nil {
		return "", 0, err
	}
	if flags&0x01 != 0 { // Values present
		n, err := r.uint16()
		if err != nil {
			return "", 0, err
		}
		for i := 0; i < int(n); i++ {
			if _, _, err := r.bytesValue(); err != nil {
				return "", 0, err
			}
		}
	}
	return query, consistency, nil
}

func (s *Server) execute(f frame, query string) frame {
	plan, err := translator.Translate(query)
	if err != nil {
		return errorFrame(f, err)
	}
	batch, err := s.Engine.Exec(plan)
	if err != nil {
		return errorFrame(f, err)
	}
	return resultFrame(f, query, batch)
}

func (s *Server) executeBatch(f frame) frame {
	r := &reader{buf: f.body}
	if _, err := r.byte(); err != nil { // batch type: logged, unused (no cross-statement atomicity here)
		return errorFrame(f, err)
	}
	n, err := r.uint16()
	if err != nil {
		return errorFrame(f, err)
	}
	var lastBatch *ir.Batch
	for i := 0; i < int(n); i++ {
		kind, err := r.byte()
		if err != nil {
			return errorFrame(f, err)
		}
		var query string
		if kind == 0 {
			query, err = r.longString()
		} else {
			var id []byte
			id, _, err = r.bytesValue()
			query = string(id)
		}
		if err != nil {
			return errorFrame(f, err)
		}
		nvals, err := r.uint16()
		if err != nil {
			return errorFrame(f, err)
		}
		for j := 0; j < int(nvals); j++ {
			if _, _, err := r.bytesValue(); err != nil {
				return errorFrame(f, err)
			}
		}
		plan, err := translator.Translate(query)
		if err != nil {
			return errorFrame(f, err)
		}
		batch, err := s.Engine.Exec(plan)
		if err != nil {
			return errorFrame(f, err)
		}
		lastBatch = batch
	}
	if lastBatch == nil || len(lastBatch.Columns) == 0 {
		return voidResultFrame(f)
	}
	return resultFrame(f, "BATCH", lastBatch)
}

func opcodeName(op byte) string {
	switch op {
	case opStartup:
		return "startup"
	case opOptions:
		return "options"
	case opQuery:
		return "query"
	case opPrepare:
		return "prepare"
	case opExecute:
		return "execute"
	case opBatch:
		return "batch"
	case opRegister:
		return "register"
	default:
		return "unknown"
	}
}

func errorFrame(f frame, err error) frame {
	code := int32(0x0000) // server error, default
	switch lumaerr.KindOf(err) {
	case lumaerr.KindAuth:
		code = 0x0100
	case lumaerr.KindTranslator:
		code = 0x2000 // invalid query
	}
	body := putInt(nil, code)
	body = putString(body, err.Error())
	return frame{version: f.version, streamID: f.streamID, opcode: opError, body: body}
}

func voidResultFrame(f frame) frame {
	return frame{version: f.version, streamID: f.streamID, opcode: opResult, body: putInt(nil, resultVoid)}
}

// preparedResultFrame answers PREPARE with the query text itself as the
// opaque statement id (see Server's doc comment), no metadata columns.
func preparedResultFrame(f frame, query string) frame {
	body := putInt(nil, resultPrepared)
	body = putBytes(body, []byte(query), false)
	body = putInt(body, 0) // metadata.flags
	body = putInt(body, 0) // metadata.columns_count
	body = putInt(body, 0) // result_metadata.flags
	body = putInt(body, 0) // result_metadata.columns_count
	return frame{version: f.version, streamID: f.streamID, opcode: opResult, body: body}
}

const globalTablesSpec = 0x0001

// typeVarchar is CQL's native_type id for text/varchar, used for every
// projected column regardless of its declared storage type — matching
// the Postgres package's own "every column reported as OID 25/text"
// simplification for the same reason: the gateway's IR has no separate
// CQL type catalog to draw exact native_type ids from.
const typeVarchar = 0x000D

func resultFrame(f frame, table string, batch *ir.Batch) frame {
	if len(batch.Columns) == 0 {
		return voidResultFrame(f)
	}
	body := putInt(nil, resultRows)
	body = putInt(body, globalTablesSpec)
	body = putInt(body, int32(len(batch.Columns)))
	body = putString(body, "lumadb")
	body = putString(body, table)
	for _, col := range batch.Columns {
		body = putString(body, col)
		body = putShort(body, typeVarchar)
	}
	body = putInt(body, int32(batch.Rows()))
	for i := 0; i < batch.Rows(); i++ {
		for _, col := range batch.Columns {
			v := batch.Data[col][i]
			if v.IsNull() {
				body = putBytes(body, nil, true)
				continue
			}
			body = putBytes(body, valueToText(v), false)
		}
	}
	return frame{version: f.version, streamID: f.streamID, opcode: opResult, body: body}
}

func valueToText(v ir.Value) []byte {
	switch v.Kind() {
	case ir.KindBool:
		return []byte(strconv.FormatBool(v.Bool()))
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

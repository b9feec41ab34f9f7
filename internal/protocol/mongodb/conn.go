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

package mongodb

import (
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/launix-de/lumadb/internal/executor"
	"github.com/launix-de/lumadb/internal/ir"
	"github.com/launix-de/lumadb/internal/lumaerr"
	"github.com/launix-de/lumadb/internal/metrics"
	"github.com/launix-de/lumadb/internal/protocol/common"
)

type Server struct {
	Engine  *executor.Engine
	Metrics *metrics.Metrics
	Log     *logrus.Logger
}

func (s *Server) Serve(nc net.Conn) {
	c := common.NewConn(nc, 0)
	log := s.Log.WithField("component", "mongodb")
	for {
		h, err := readHeader(c)
		if err != nil {
			return
		}
		switch h.opCode {
		case opMsg:
			if !s.serveOpMsg(c, h) {
				return
			}
		case opQuery:
			if !s.serveOpQuery(c, h) {
				return
			}
		case opInsert:
			if !s.serveOpInsert(c, h) {
				return
			}
		case opUpdate:
			if !s.serveOpUpdate(c, h) {
				return
			}
		case opDelete:
			if !s.serveOpDelete(c, h) {
				return
			}
		default:
			log.Warnf("unsupported opcode %d, closing", h.opCode)
			return
		}
	}
}

func (s *Server) serveOpMsg(c *common.Conn, h header) bool {
	body, err := readOpMsgBody(c, h)
	if err != nil {
		s.Log.WithField("component", "mongodb").WithError(err).Warn("malformed OP_MSG")
		return false
	}
	var cmd bson.D
	if err := bson.Unmarshal(body, &cmd); err != nil {
		s.Log.WithField("component", "mongodb").WithError(err).Warn("malformed BSON command document")
		return false
	}
	reply := s.handleCommand(cmd)
	out, err := bson.Marshal(reply)
	if err != nil {
		return false
	}
	return writeOpMsg(c, h.requestID, out) == nil
}

// serveOpQuery handles the legacy OP_QUERY opcode: a fullCollectionName ending in
// ".$cmd" is command dispatch exactly like OP_MSG, routed through the
// same handleCommand; anything else is a legacy find against that
// collection, answered as a single OP_REPLY document batch (no
// server-side cursor — numberToReturn is honored as a limit, getMore is
// not implemented since every client from the last decade prefers
// OP_MSG's cursor protocol).
func (s *Server) serveOpQuery(c *common.Conn, h header) bool {
	q, err := readOpQueryBody(c, h)
	if err != nil {
		s.Log.WithField("component", "mongodb").WithError(err).Warn("malformed OP_QUERY")
		return false
	}
	var query bson.D
	if err := bson.Unmarshal(q.query, &query); err != nil {
		s.Log.WithField("component", "mongodb").WithError(err).Warn("malformed OP_QUERY document")
		return false
	}

	var reply bson.M
	if strings.HasSuffix(q.collection, ".$cmd") {
		reply = s.handleCommand(query)
	} else {
		collection := collectionFromNamespace(q.collection)
		cmd := bson.D{{Key: "find", Value: collection}, {Key: "filter", Value: query}}
		if q.numberToReturn > 0 {
			cmd = append(cmd, bson.E{Key: "limit", Value: q.numberToReturn})
		}
		found := s.find(cmd)
		cursor, _ := found["cursor"].(bson.M)
		docs, _ := cursor["firstBatch"].([]interface{})
		var raw [][]byte
		for _, d := range docs {
			b, err := bson.Marshal(d)
			if err != nil {
				continue
			}
			raw = append(raw, b)
		}
		return writeOpReply(c, h.requestID, raw) == nil
	}
	out, err := bson.Marshal(reply)
	if err != nil {
		return false
	}
	return writeOpReply(c, h.requestID, [][]byte{out}) == nil
}

// serveOpInsert handles legacy OP_INSERT, acknowledging nothing on the
// wire (the opcode is fire-and-forget by design; errors surface only
// through a following getLastError command, which this gateway doesn't
// implement since no maintained driver still issues one).
func (s *Server) serveOpInsert(c *common.Conn, h header) bool {
	w, err := readOpInsertBody(c, h)
	if err != nil {
		s.Log.WithField("component", "mongodb").WithError(err).Warn("malformed OP_INSERT")
		return false
	}
	collection := collectionFromNamespace(w.collection)
	for _, raw := range w.docs {
		var doc bson.D
		if err := bson.Unmarshal(raw, &doc); err != nil {
			continue
		}
		cmd := bson.D{{Key: "insert", Value: collection}, {Key: "documents", Value: primitive.A{doc}}}
		s.insert(cmd)
	}
	return true
}

func (s *Server) serveOpUpdate(c *common.Conn, h header) bool {
	w, err := readOpUpdateBody(c, h)
	if err != nil || len(w.docs) < 2 {
		s.Log.WithField("component", "mongodb").WithError(err).Warn("malformed OP_UPDATE")
		return false
	}
	var selector, update bson.D
	if err := bson.Unmarshal(w.docs[0], &selector); err != nil {
		return false
	}
	if err := bson.Unmarshal(w.docs[1], &update); err != nil {
		return false
	}
	collection := collectionFromNamespace(w.collection)
	cmd := bson.D{{Key: "update", Value: collection}, {Key: "updates", Value: primitive.A{
		bson.D{{Key: "q", Value: selector}, {Key: "u", Value: update}},
	}}}
	s.update(cmd)
	return true
}

func (s *Server) serveOpDelete(c *common.Conn, h header) bool {
	w, err := readOpDeleteBody(c, h)
	if err != nil || len(w.docs) < 1 {
		s.Log.WithField("component", "mongodb").WithError(err).Warn("malformed OP_DELETE")
		return false
	}
	var selector bson.D
	if err := bson.Unmarshal(w.docs[0], &selector); err != nil {
		return false
	}
	collection := collectionFromNamespace(w.collection)
	cmd := bson.D{{Key: "delete", Value: collection}, {Key: "deletes", Value: primitive.A{
		bson.D{{Key: "q", Value: selector}},
	}}}
	s.delete(cmd)
	return true
}

// collectionFromNamespace strips the "<database>." prefix legacy
// opcodes carry in fullCollectionName; this gateway has no separate
// database namespace (every collection is a top-level table), matching
// the OP_MSG command handlers' own collectionOf helper.
func collectionFromNamespace(ns string) string {
	if idx := strings.IndexByte(ns, '.'); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}

func (s *Server) handleCommand(cmd bson.D) bson.M {
	if len(cmd) == 0 {
		return bson.M{"ok": 0.0, "errmsg": "empty command document"}
	}
	name := cmd[0].Key
	start := time.Now()
	defer func() { s.Metrics.ObserveQuery("mongodb", name, time.Since(start).Seconds()) }()

	switch name {
	case "hello", "ismaster", "isMaster":
		return helloReply()
	case "ping":
		return bson.M{"ok": 1.0}
	case "find":
		return s.find(cmd)
	case "insert":
		return s.insert(cmd)
	case "update":
		return s.update(cmd)
	case "delete":
		return s.delete(cmd)
	default:
		return bson.M{"ok": 0.0, "errmsg": "no such command: '" + name + "'"}
	}
}

// helloReply answers hello/isMaster with the fields drivers
// expect verbatim.
func helloReply() bson.M {
	return bson.M{
		"ok":                  1.0,
		"ismaster":            true,
		"maxBsonObjectSize":   16 * 1024 * 1024,
		"maxMessageSizeBytes": 48 * 1000 * 1000,
		"maxWriteBatchSize":   100000,
		"maxWireVersion":      17,
		"minWireVersion":      0,
		"localTime":           time.Now(),
	}
}

func cmdValue(cmd bson.D, key string) (interface{}, bool) {
	for _, e := range cmd {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func collectionOf(cmd bson.D) string {
	if len(cmd) == 0 {
		return ""
	}
	if s, ok := cmd[0].Value.(string); ok {
		return s
	}
	return ""
}

// filterToExpr converts a BSON equality filter document into an
// AND-chain of "field = literal" comparisons. Operators ($gt, $in, ...)
// are not supported, matching this gateway's deliberately narrow
// translator scope (internal/translator).
func filterToExpr(filter bson.M) (*ir.Expr, error) {
	if len(filter) == 0 {
		return nil, nil
	}
	var e *ir.Expr
	for k, v := range filter {
		lit, err := bsonToIR(v)
		if err != nil {
			return nil, err
		}
		cmp := ir.Call("=", ir.Col(k), ir.Lit(lit))
		if e == nil {
			e = &cmp
		} else {
			combined := ir.Call("and", *e, cmp)
			e = &combined
		}
	}
	return e, nil
}

func (s *Server) find(cmd bson.D) bson.M {
	table := collectionOf(cmd)
	var filter bson.M
	if f, ok := cmdValue(cmd, "filter"); ok {
		if m, ok := f.(bson.M); ok {
			filter = m
		} else if d, ok := f.(bson.D); ok {
			filter = d.Map()
		}
	}
	expr, err := filterToExpr(filter)
	if err != nil {
		return errReply(err)
	}
	plan := ir.QueryPlan{ir.NewScan(table, nil, expr)}
	if lim, ok := cmdValue(cmd, "limit"); ok {
		if n, ok := asInt(lim); ok {
			plan = append(plan, ir.NewLimit(n, 0))
		}
	}
	batch, err := s.Engine.Exec(plan)
	if err != nil {
		return errReply(err)
	}
	docs := make([]interface{}, batch.Rows())
	for i := 0; i < batch.Rows(); i++ {
		docs[i] = rowToBSON(batch.Columns, batch.Row(i))
	}
	return bson.M{
		"ok": 1.0,
		"cursor": bson.M{
			"id":         int64(0),
			"ns":         table,
			"firstBatch": docs,
		},
	}
}

func (s *Server) insert(cmd bson.D) bson.M {
	table := collectionOf(cmd)
	docsRaw, _ := cmdValue(cmd, "documents")
	docs, _ := docsRaw.(primitive.A)
	n := 0
	for _, raw := range docs {
		doc, ok := raw.(bson.D)
		if !ok {
			continue
		}
		var cols []string
		var vals []ir.Value
		for _, e := range doc {
			v, err := bsonToIR(e.Value)
			if err != nil {
				return errReply(err)
			}
			cols = append(cols, e.Key)
			vals = append(vals, v)
		}
		plan := ir.QueryPlan{ir.NewDML(ir.DML{Kind: ir.DMLInsert, Table: table, Columns: cols, Values: vals})}
		if _, err := s.Engine.Exec(plan); err != nil {
			return errReply(err)
		}
		n++
	}
	return bson.M{"ok": 1.0, "n": n}
}

func (s *Server) update(cmd bson.D) bson.M {
	table := collectionOf(cmd)
	updatesRaw, _ := cmdValue(cmd, "updates")
	updates, _ := updatesRaw.(primitive.A)
	n := 0
	for _, raw := range updates {
		u, ok := raw.(bson.D)
		if !ok {
			continue
		}
		um := u.Map()
		var filter bson.M
		if q, ok := um["q"].(bson.D); ok {
			filter = q.Map()
		}
		set, _ := um["u"].(bson.D)
		setDoc := set.Map()
		setFields, _ := setDoc["$set"].(bson.D)

		expr, err := filterToExpr(filter)
		if err != nil {
			return errReply(err)
		}
		var cols []string
		var vals []ir.Value
		for _, e := range setFields {
			v, err := bsonToIR(e.Value)
			if err != nil {
				return errReply(err)
			}
			cols = append(cols, e.Key)
			vals = append(vals, v)
		}
		plan := ir.QueryPlan{ir.NewDML(ir.DML{Kind: ir.DMLUpdate, Table: table, Columns: cols, Values: vals, Filter: expr})}
		batch, err := s.Engine.Exec(plan)
		if err != nil {
			return errReply(err)
		}
		if len(batch.Data["affected_rows"]) > 0 {
			n += int(batch.Data["affected_rows"][0].Int())
		}
	}
	return bson.M{"ok": 1.0, "n": n}
}

func (s *Server) delete(cmd bson.D) bson.M {
	table := collectionOf(cmd)
	deletesRaw, _ := cmdValue(cmd, "deletes")
	deletes, _ := deletesRaw.(primitive.A)
	n := 0
	for _, raw := range deletes {
		d, ok := raw.(bson.D)
		if !ok {
			continue
		}
		dm := d.Map()
		var filter bson.M
		if q, ok := dm["q"].(bson.D); ok {
			filter = q.Map()
		}
		expr, err := filterToExpr(filter)
		if err != nil {
			return errReply(err)
		}
		plan := ir.QueryPlan{ir.NewDML(ir.DML{Kind: ir.DMLDelete, Table: table, Filter: expr})}
		batch, err := s.Engine.Exec(plan)
		if err != nil {
			return errReply(err)
		}
		if len(batch.Data["affected_rows"]) > 0 {
			n += int(batch.Data["affected_rows"][0].Int())
		}
	}
	return bson.M{"ok": 1.0, "n": n}
}

func errReply(err error) bson.M {
	return bson.M{"ok": 0.0, "errmsg": err.Error(), "code": int32(lumaerr.KindOf(err))}
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func rowToBSON(columns []string, row []ir.Value) bson.D {
	doc := make(bson.D, 0, len(columns))
	for i, c := range columns {
		doc = append(doc, bson.E{Key: c, Value: irToBSON(row[i])})
	}
	return doc
}

func irToBSON(v ir.Value) interface{} {
	switch v.Kind() {
	case ir.KindNull:
		return nil
	case ir.KindBool:
		return v.Bool()
	case ir.KindInt:
		return v.Int()
	case ir.KindFloat:
		return v.Float()
	case ir.KindDecimal:
		return v.Decimal().String()
	case ir.KindBytes:
		return v.Bytes()
	case ir.KindUUID:
		return v.UUID().String()
	case ir.KindObjectID:
		return primitive.ObjectID(v.ObjectID())
	case ir.KindTimestamp, ir.KindDate, ir.KindTime:
		return v.Time()
	case ir.KindList, ir.KindSet:
		items := make([]interface{}, len(v.List()))
		for i, e := range v.List() {
			items[i] = irToBSON(e)
		}
		return items
	case ir.KindMap:
		doc := bson.M{}
		for k, e := range v.Map() {
			doc[k] = irToBSON(e)
		}
		return doc
	case ir.KindJSON:
		return v.JSON()
	default:
		return v.Text()
	}
}

func bsonToIR(v interface{}) (ir.Value, error) {
	switch t := v.(type) {
	case nil:
		return ir.Null(), nil
	case bool:
		return ir.NewBool(t), nil
	case int32:
		return ir.NewInt(int64(t)), nil
	case int64:
		return ir.NewInt(t), nil
	case float64:
		return ir.NewFloat(t), nil
	case string:
		return ir.NewText(t), nil
	case primitive.Binary:
		return ir.NewBytes(t.Data), nil
	case primitive.ObjectID:
		return ir.NewObjectID(ir.ObjectID(t)), nil
	case primitive.DateTime:
		return ir.NewTimestamp(t.Time()), nil
	case bson.D:
		m := make(map[string]ir.Value, len(t))
		for _, e := range t {
			iv, err := bsonToIR(e.Value)
			if err != nil {
				return ir.Value{}, err
			}
			m[e.Key] = iv
		}
		return ir.NewMap(m), nil
	case primitive.A:
		items := make([]ir.Value, len(t))
		for i, e := range t {
			iv, err := bsonToIR(e)
			if err != nil {
				return ir.Value{}, err
			}
			items[i] = iv
		}
		return ir.NewList(items), nil
	default:
		return ir.Value{}, lumaerr.TypeConversion("mongodb: unsupported BSON type in document")
	}
}

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

package executor

import (
	"bytes"
	"sync"

	"github.com/launix-de/lumadb/internal/ir"
	"github.com/launix-de/lumadb/internal/lumaerr"
	"github.com/launix-de/lumadb/internal/shard"
)

// Engine is the whole-cluster query entry point protocol handlers call:
// read plans fan out through the Coordinator (single-shard when the
// first Scan filters by an exact "_key" equality, broadcast otherwise),
// while DML/DDL/Command are handled here directly since they need to
// reach other shards (a Filter-based Update/Delete) or mutate the
// column-type map every ShardExecutor shares. Grounded on memcp's
// top-level statement dispatch (scm/main.go's Eval entry point sitting
// above storage/table.go), generalized from one Lisp-call dispatch to
// the IR's DML/DDL/Command/query-plan split.
type Engine struct {
	coord    *shard.Coordinator
	colTypes map[string]string // shared by reference with every shard's Worker

	mu      sync.Mutex
	tables  map[string][]ir.ColumnDef
	indices map[string][]string // index name -> columns, bookkeeping only
}

func NewEngine(coord *shard.Coordinator, colTypes map[string]string) *Engine {
	return &Engine{
		coord:    coord,
		colTypes: colTypes,
		tables:   make(map[string][]ir.ColumnDef),
		indices:  make(map[string][]string),
	}
}

// Exec runs plan to completion: a DML/DDL/Command plan is handled
// directly; anything else is a read query routed through the
// coordinator and its per-shard ShardExecutor.
func (e *Engine) Exec(plan ir.QueryPlan) (*ir.Batch, error) {
	if len(plan) == 0 {
		return ir.NewBatch(nil), nil
	}
	switch plan[0].Kind {
	case ir.OpDML:
		return e.execDML(plan[0].DML)
	case ir.OpDDL:
		return e.execDDL(plan[0].DDL)
	case ir.OpCommand:
		return successBatch(), nil
	default:
		return e.execQuery(plan)
	}
}

func (e *Engine) execQuery(plan ir.QueryPlan) (*ir.Batch, error) {
	if plan[0].Kind == ir.OpScan {
		if key, ok := pointKey(plan[0].Filter); ok {
			return e.coord.Query(key, plan)
		}
	}
	return e.coord.BroadcastQuery(plan)
}

// pointKey recognizes filter == (_key = <literal>), the one predicate
// shape that pins a query to a single shard.
func pointKey(filter *ir.Expr) (ir.Key, bool) {
	if filter == nil || filter.Kind != ir.ExprCall || filter.Fn != "=" || len(filter.Args) != 2 {
		return nil, false
	}
	col, lit := filter.Args[0], filter.Args[1]
	if col.Kind != ir.ExprColumn {
		col, lit = lit, col
	}
	if col.Kind != ir.ExprColumn || col.Col != "_key" || lit.Kind != ir.ExprLiteral {
		return nil, false
	}
	switch lit.Lit.Kind() {
	case ir.KindBytes:
		return ir.Key(lit.Lit.Bytes()), true
	case ir.KindText:
		return ir.KeyFromString(lit.Lit.Text()), true
	default:
		return nil, false
	}
}

func successBatch() *ir.Batch {
	b := ir.NewBatch([]string{"ok"})
	b.AppendRow(ir.NewBool(true))
	return b
}

func affectedBatch(n int64) *ir.Batch {
	b := ir.NewBatch([]string{"affected_rows"})
	b.AppendRow(ir.NewInt(n))
	return b
}

func (e *Engine) execDML(d *ir.DML) (*ir.Batch, error) {
	if d == nil {
		return nil, lumaerr.Internal("executor: DML operation missing its payload")
	}
	switch d.Kind {
	case ir.DMLInsert:
		return e.insert(d)
	case ir.DMLUpdate:
		return e.update(d)
	case ir.DMLDelete:
		return e.delete(d)
	}
	return nil, lumaerr.Internal("executor: unknown DML kind")
}

func (e *Engine) insert(d *ir.DML) (*ir.Batch, error) {
	m := make(map[string]ir.Value, len(d.Columns)+1)
	for i, c := range d.Columns {
		if i < len(d.Values) {
			m[c] = d.Values[i]
		}
	}
	m[tableColumn] = ir.NewText(d.Table)
	key := buildRowKey(d.Table, d.Columns, d.Values)
	e.coord.Put(key, ir.NewMap(m))
	return affectedBatch(1), nil
}

// buildRowKey derives a routing key for a freshly inserted row: an
// explicit id/_id/_key column if the caller supplied one, else a hash of
// every column value so two inserts with identical content don't
// silently collide more often than the hash warrants.
func buildRowKey(table string, columns []string, values []ir.Value) ir.Key {
	for _, cand := range []string{"_key", "_id", "id"} {
		for i, c := range columns {
			if c == cand && i < len(values) {
				v := values[i]
				if v.Kind() == ir.KindBytes {
					return ir.Key(v.Bytes())
				}
				if v.Kind() == ir.KindText {
					return ir.KeyFromString(v.Text())
				}
			}
		}
	}
	var buf bytes.Buffer
	buf.WriteString(table)
	for i, c := range columns {
		buf.WriteString(c)
		if i < len(values) {
			_ = ir.EncodeValue(&buf, values[i])
		}
	}
	return ir.Key(buf.Bytes())
}

func (e *Engine) update(d *ir.DML) (*ir.Batch, error) {
	if len(d.Key) > 0 {
		n, err := e.updateOne(d.Key, d.Columns, d.Values)
		if err != nil {
			return nil, err
		}
		return affectedBatch(n), nil
	}
	keys, err := e.matchingKeys(d.Table, d.Filter)
	if err != nil {
		return nil, err
	}
	var affected int64
	for _, k := range keys {
		n, err := e.updateOne(k, d.Columns, d.Values)
		if err != nil {
			return nil, err
		}
		affected += n
	}
	return affectedBatch(affected), nil
}

func (e *Engine) updateOne(key ir.Key, columns []string, values []ir.Value) (int64, error) {
	cur, found, err := e.coord.Get(key)
	if err != nil {
		return 0, err
	}
	m := map[string]ir.Value{}
	if found && cur.Kind() == ir.KindMap {
		for k, v := range cur.Map() {
			m[k] = v
		}
	}
	for i, c := range columns {
		if i < len(values) {
			m[c] = values[i]
		}
	}
	e.coord.Put(key, ir.NewMap(m))
	if found {
		return 1, nil
	}
	return 0, nil
}

func (e *Engine) delete(d *ir.DML) (*ir.Batch, error) {
	if len(d.Key) > 0 {
		e.coord.Delete(d.Key)
		return affectedBatch(1), nil
	}
	keys, err := e.matchingKeys(d.Table, d.Filter)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		e.coord.Delete(k)
	}
	return affectedBatch(int64(len(keys))), nil
}

// matchingKeys broadcasts a "_key"-only scan scoped to table and filter,
// used by Filter-based Update/Delete to find every row to touch before
// issuing per-key Put/Delete calls.
func (e *Engine) matchingKeys(table string, filter *ir.Expr) ([]ir.Key, error) {
	plan := ir.QueryPlan{ir.NewScan(table, []string{"_key"}, filter)}
	batch, err := e.coord.BroadcastQuery(plan)
	if err != nil {
		return nil, err
	}
	vals := batch.Data["_key"]
	keys := make([]ir.Key, len(vals))
	for i, v := range vals {
		keys[i] = ir.Key(v.Bytes())
	}
	return keys, nil
}

func (e *Engine) execDDL(d *ir.DDL) (*ir.Batch, error) {
	if d == nil {
		return nil, lumaerr.Internal("executor: DDL operation missing its payload")
	}

	switch d.Kind {
	case ir.DDLCreateTable:
		e.mu.Lock()
		e.tables[d.Table] = d.Columns
		for _, c := range d.Columns {
			e.colTypes[c.Name] = c.Type
		}
		e.mu.Unlock()
		return successBatch(), nil
	case ir.DDLDropTable:
		e.mu.Lock()
		delete(e.tables, d.Table)
		e.mu.Unlock()
		keys, err := e.matchingKeys(d.Table, nil)
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			e.coord.Delete(k)
		}
		return affectedBatch(int64(len(keys))), nil
	case ir.DDLCreateIndex:
		// Indices here are derived structurally from a column's declared
		// type at segment-build time (BuildSegment), not created ad hoc
		// by name; CreateIndex only records that one was requested.
		e.mu.Lock()
		e.indices[d.IndexName] = d.IndexCols
		e.mu.Unlock()
		return successBatch(), nil
	}
	return nil, lumaerr.Internal("executor: unknown DDL kind")
}

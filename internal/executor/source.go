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
	"github.com/launix-de/lumadb/internal/ir"
	"github.com/launix-de/lumadb/internal/shard"
	"github.com/launix-de/lumadb/internal/storage"
)

// tableColumn is the reserved column every row carries its owning
// table's name under, since a shard's memtable and segments hold every
// table's rows in one flat keyspace. Engine.insert sets it on every
// inserted row.
const tableColumn = "_table"

// gatherRows collects every live row visible to a shard — its unsealed
// memtable's rows first, then every sealed segment's rows in sealing
// order — as name-addressed
// maps, optionally restricted to one table. Rows are not deduplicated
// by key across segments: a Scan sees every version a key has ever been
// written with, since per-key reconciliation is a point-Get concern
// (worker.go's handleGet), not a Scan one.
func gatherRows(state shard.ShardState, table string) []row {
	var out []row
	for _, r := range state.Memtable.All() {
		m := rowFromMemtableRow(r)
		if matchesTable(m, table) {
			out = append(out, m)
		}
	}
	for _, seg := range state.Segments {
		for i := uint(0); i < seg.RowCount; i++ {
			m := rowFromSegment(seg, i)
			if matchesTable(m, table) {
				out = append(out, m)
			}
		}
	}
	return out
}

func matchesTable(m row, table string) bool {
	if table == "" {
		return true
	}
	v, ok := m[tableColumn]
	if !ok || v.IsNull() {
		return false
	}
	return v.Text() == table
}

// rowFromMemtableRow flattens one buffered Row the same way
// Memtable.Seal does, without sealing: a KindMap value contributes one
// column per map key, any other value contributes a single "value"
// column, and _key/_lsn are always present.
func rowFromMemtableRow(r storage.Row) row {
	m := row{
		storage.KeyColumn: ir.NewBytes([]byte(r.Key)),
		storage.LSNColumn: ir.NewInt(int64(r.LSN)),
	}
	if r.Value.Kind() == ir.KindMap {
		for k, v := range r.Value.Map() {
			m[k] = v
		}
	} else {
		m["value"] = r.Value
	}
	return m
}

func rowFromSegment(seg *storage.Segment, i uint) row {
	m := make(row, len(seg.Columns))
	for _, c := range seg.Columns {
		m[c.Name] = c.Storage.GetValue(i)
	}
	return m
}

// projectColumns decides a Batch's column list: the caller's explicit
// request, or else the union of every key seen across rs, in first-seen
// order for determinism.
func projectColumns(requested []string, rs []row) []string {
	if len(requested) > 0 {
		return requested
	}
	seen := map[string]struct{}{}
	var cols []string
	for _, r := range rs {
		for k := range r {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				cols = append(cols, k)
			}
		}
	}
	return cols
}

func rowsToBatch(columns []string, rs []row) *ir.Batch {
	b := ir.NewBatch(columns)
	for _, r := range rs {
		values := make([]ir.Value, len(columns))
		for i, c := range columns {
			if v, ok := r[c]; ok {
				values[i] = v
			} else {
				values[i] = ir.Null()
			}
		}
		b.AppendRow(values...)
	}
	return b
}

func batchToRows(b *ir.Batch) []row {
	rs := make([]row, b.Rows())
	for i := 0; i < b.Rows(); i++ {
		m := make(row, len(b.Columns))
		for _, c := range b.Columns {
			m[c] = b.Data[c][i]
		}
		rs[i] = m
	}
	return rs
}

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
	"sort"
	"strconv"

	"github.com/launix-de/lumadb/internal/ir"
	"github.com/launix-de/lumadb/internal/lumaerr"
	"github.com/launix-de/lumadb/internal/shard"
)

// ShardExecutor implements shard.Executor: it evaluates the read-only
// operations of a QueryPlan (Scan/Project/Filter/Aggregate/
// WindowAggregate/Sort/Limit/VectorSearch/TextSearch) against one
// shard's visible state. DML/DDL/Command never reach it — those route
// through Engine instead, since they need the coordinator to reach
// other shards or mutate the shared column-type map. Grounded on
// memcp's scm.Eval pipeline (scm/main.go), generalized from a Lisp
// expression evaluator folding over a single value to a relational
// operator chain folding over a columnar batch.
type ShardExecutor struct {
	// TimeColumn is the event-time column WindowAggregate buckets by,
	// shared across every table in the shard.
	TimeColumn string
}

func New(timeColumn string) *ShardExecutor {
	return &ShardExecutor{TimeColumn: timeColumn}
}

// ExecuteOnShard runs plan against seg, threading a []row pipeline
// through each operation in order. The first operation must produce
// rows (Scan, VectorSearch or TextSearch); everything after transforms
// the pipeline.
func (e *ShardExecutor) ExecuteOnShard(plan ir.QueryPlan, seg shard.ShardState) (*ir.Batch, error) {
	if len(plan) == 0 {
		return ir.NewBatch(nil), nil
	}

	var rs []row
	var requestedCols []string
	first := plan[0]
	switch first.Kind {
	case ir.OpScan:
		rs = gatherRows(seg, first.Table)
		filtered, err := filterRows(rs, first.Filter)
		if err != nil {
			return nil, err
		}
		rs = filtered
		requestedCols = first.Columns
	case ir.OpVectorSearch:
		rs = runVectorSearch(seg, first)
	case ir.OpTextSearch:
		rs = runTextSearch(seg, first)
	case ir.OpDML, ir.OpDDL, ir.OpCommand:
		return nil, lumaerr.Internal("executor: DML/DDL/Command must be routed through Engine, not ExecuteOnShard")
	default:
		return nil, lumaerr.Internal("executor: query plan's first operation must be a data source")
	}

	for _, op := range plan[1:] {
		var err error
		rs, requestedCols, err = e.step(rs, requestedCols, op)
		if err != nil {
			return nil, err
		}
	}

	cols := projectColumns(requestedCols, rs)
	return rowsToBatch(cols, rs), nil
}

func (e *ShardExecutor) step(rs []row, cols []string, op ir.Operation) ([]row, []string, error) {
	switch op.Kind {
	case ir.OpFilter:
		filtered, err := filterRows(rs, op.Filter)
		return filtered, cols, err
	case ir.OpProject:
		return projectRows(rs, op.Exprs)
	case ir.OpAggregate:
		return runAggregate(rs, op.GroupBy, op.Aggregates), nil, nil
	case ir.OpWindowAggregate:
		return runWindowAggregate(rs, op.Window, e.TimeColumn, op.GroupBy, op.Aggregates), nil, nil
	case ir.OpSort:
		sortRows(rs, op.SortKeys)
		return rs, cols, nil
	case ir.OpLimit:
		return limitRows(rs, op.Limit, op.Offset), cols, nil
	default:
		return nil, nil, lumaerr.Internal("executor: unsupported operation in pipeline position")
	}
}

func filterRows(rs []row, pred *ir.Expr) ([]row, error) {
	if pred == nil {
		return rs, nil
	}
	out := rs[:0:0]
	for _, r := range rs {
		ok, err := evalPredicate(pred, r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// projectRows evaluates exprs per row. An ExprColumn projection keeps
// its source column name as the output column; anything else (a
// literal or call) is named positionally, "_col0", "_col1", ... since
// the IR carries no alias field.
func projectRows(rs []row, exprs []ir.Expr) ([]row, []string, error) {
	cols := make([]string, len(exprs))
	for i, e := range exprs {
		if e.Kind == ir.ExprColumn {
			cols[i] = e.Col
		} else {
			cols[i] = exprColumnName(i)
		}
	}
	out := make([]row, len(rs))
	for i, r := range rs {
		nr := make(row, len(exprs))
		for j, e := range exprs {
			v, err := evalExpr(e, r)
			if err != nil {
				return nil, nil, err
			}
			nr[cols[j]] = v
		}
		out[i] = nr
	}
	return out, cols, nil
}

func exprColumnName(i int) string {
	return "_col" + strconv.Itoa(i)
}

func sortRows(rs []row, keys []ir.SortKey) {
	sort.SliceStable(rs, func(i, j int) bool {
		for _, k := range keys {
			a, b := rs[i][k.Column], rs[j][k.Column]
			if a.TotalOrderLess(b) {
				return !k.Desc
			}
			if b.TotalOrderLess(a) {
				return k.Desc
			}
		}
		return false
	})
}

func limitRows(rs []row, limit, offset int) []row {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rs) {
		return nil
	}
	rs = rs[offset:]
	if limit >= 0 && limit < len(rs) {
		rs = rs[:limit]
	}
	return rs
}

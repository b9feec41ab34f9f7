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
	"time"

	"github.com/launix-de/lumadb/internal/ir"
	"github.com/launix-de/lumadb/internal/storage"
)

const windowStartColumn = "_window_start"
const windowEndColumn = "_window_end"

// runWindowAggregate buckets rs by ir.WindowSpec over the shard's
// configured event-time column, then reduces each (groupBy, window)
// bucket through aggs ir.WindowKind and
// storage.WindowKind share the same ordinal encoding so the cast below
// is safe; kept as two types because ir must stay free of the storage
// package's internals (the IR is shared by every protocol layer) while
// storage owns the actual assignment math.
func runWindowAggregate(rs []row, spec ir.WindowSpec, timeCol string, groupBy []string, aggs []Aggregator) []row {
	ws := storage.WindowSpec{
		Kind:  storage.WindowKind(spec.Kind),
		Size:  spec.Size,
		Slide: spec.Slide,
		Gap:   spec.Gap,
	}

	var bucketed []row
	if spec.Kind == ir.WindowSession {
		bucketed = assignSessionWindows(rs, ws, timeCol, groupBy)
	} else {
		for _, r := range rs {
			t := storage.TimeOf(r[timeCol])
			for _, w := range ws.Assign(t) {
				tagged := cloneRow(r)
				tagged[windowStartColumn] = ir.NewTimestamp(time.UnixMicro(w.Start))
				tagged[windowEndColumn] = ir.NewTimestamp(time.UnixMicro(w.End))
				bucketed = append(bucketed, tagged)
			}
		}
	}

	return runAggregate(bucketed, append(append([]string{}, groupBy...), windowStartColumn, windowEndColumn), aggs)
}

// assignSessionWindows drives a SessionAssigner per groupBy key, which
// requires processing each key's events in time order for the
// extend-or-open rule to behave correctly.
func assignSessionWindows(rs []row, ws storage.WindowSpec, timeCol string, groupBy []string) []row {
	byKey := map[string][]row{}
	var order []string
	for _, r := range rs {
		k := groupKey(r, groupBy)
		if _, ok := byKey[k]; !ok {
			order = append(order, k)
		}
		byKey[k] = append(byKey[k], r)
	}

	var out []row
	for _, k := range order {
		grs := byKey[k]
		sort.Slice(grs, func(i, j int) bool {
			return storage.TimeOf(grs[i][timeCol]) < storage.TimeOf(grs[j][timeCol])
		})
		assigner := storage.NewSessionAssigner(ws.Gap)
		for _, r := range grs {
			t := storage.TimeOf(r[timeCol])
			w := assigner.Assign(k, t)
			tagged := cloneRow(r)
			tagged[windowStartColumn] = ir.NewTimestamp(time.UnixMicro(w.Start))
			tagged[windowEndColumn] = ir.NewTimestamp(time.UnixMicro(w.End))
			out = append(out, tagged)
		}
	}
	return out
}

func cloneRow(r row) row {
	c := make(row, len(r)+2)
	for k, v := range r {
		c[k] = v
	}
	return c
}

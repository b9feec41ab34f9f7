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
	"math"
	"sort"

	"github.com/launix-de/lumadb/internal/ir"
	"github.com/launix-de/lumadb/internal/storage"
)

// groupKey returns a canonical byte string identifying rs's GroupBy
// column values, built on ir.EncodeValue so any Value kind (including
// ones that don't implement Go's == comparably, like KindBytes) can key
// a group consistently.
func groupKey(r row, groupBy []string) string {
	if len(groupBy) == 0 {
		return ""
	}
	var buf bytes.Buffer
	for _, col := range groupBy {
		v, ok := r[col]
		if !ok {
			v = ir.Null()
		}
		_ = ir.EncodeValue(&buf, v)
	}
	return buf.String()
}

// runAggregate groups rs by GroupBy and reduces each group through every
// Aggregator A nil GroupBy produces exactly one group
// covering all of rs (including the empty-input case: COUNT(*) over zero
// rows is 0, SUM is 0, MIN/MAX/AVG are null, matching standard SQL).
func runAggregate(rs []row, groupBy []string, aggs []Aggregator) []row {
	order := []string{}
	groups := map[string][]row{}
	for _, r := range rs {
		k := groupKey(r, groupBy)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}
	if len(rs) == 0 && len(groupBy) == 0 {
		// One empty group so COUNT(*)-style aggregates still produce a row.
		order = []string{""}
		groups[""] = nil
	}

	out := make([]row, 0, len(order))
	for _, k := range order {
		grs := groups[k]
		result := row{}
		if len(grs) > 0 {
			for _, col := range groupBy {
				result[col] = grs[0][col]
			}
		}
		for _, a := range aggs {
			result[a.Output] = reduce(grs, a)
		}
		out = append(out, result)
	}
	return out
}

// Aggregator is re-exported under the executor package for callers that
// construct synthetic aggregations (e.g. window bucketing); identical in
// shape to ir.Aggregator.
type Aggregator = ir.Aggregator

func reduce(rs []row, a Aggregator) ir.Value {
	switch a.Func {
	case ir.AggCount:
		if a.Column == "" {
			return ir.NewInt(int64(len(rs)))
		}
		n := int64(0)
		for _, r := range rs {
			if v, ok := r[a.Column]; ok && !v.IsNull() {
				n++
			}
		}
		return ir.NewInt(n)
	case ir.AggSum:
		var sum float64
		allInt := true
		var isum int64
		for _, r := range rs {
			v, ok := r[a.Column]
			if !ok || v.IsNull() {
				continue
			}
			if v.Kind() != ir.KindInt {
				allInt = false
			}
			sum += asFloat(v)
			if v.Kind() == ir.KindInt {
				isum += v.Int()
			}
		}
		if allInt {
			return ir.NewInt(isum)
		}
		return ir.NewFloat(sum)
	case ir.AggAvg:
		var sum float64
		var n int
		for _, r := range rs {
			v, ok := r[a.Column]
			if !ok || v.IsNull() {
				continue
			}
			sum += asFloat(v)
			n++
		}
		if n == 0 {
			return ir.Null()
		}
		return ir.NewFloat(sum / float64(n))
	case ir.AggMin:
		return extremum(rs, a.Column, true)
	case ir.AggMax:
		return extremum(rs, a.Column, false)
	case ir.AggStdDev:
		return stddev(rs, a.Column)
	case ir.AggHLLCount:
		hll := storage.NewHyperLogLog(0)
		for _, r := range rs {
			if v, ok := r[a.Column]; ok && !v.IsNull() {
				hll.Add(v)
			}
		}
		return ir.NewInt(int64(hll.Count()))
	case ir.AggPercentile:
		return percentile(rs, a.Column, a.Percentile)
	}
	return ir.Null()
}

func extremum(rs []row, col string, wantMin bool) ir.Value {
	var best ir.Value
	has := false
	for _, r := range rs {
		v, ok := r[col]
		if !ok || v.IsNull() {
			continue
		}
		if !has {
			best, has = v, true
			continue
		}
		c := compareValues(v, best)
		if (wantMin && c < 0) || (!wantMin && c > 0) {
			best = v
		}
	}
	if !has {
		return ir.Null()
	}
	return best
}

func stddev(rs []row, col string) ir.Value {
	var vals []float64
	for _, r := range rs {
		v, ok := r[col]
		if !ok || v.IsNull() || !isNumeric(v) {
			continue
		}
		vals = append(vals, asFloat(v))
	}
	if len(vals) == 0 {
		return ir.Null()
	}
	var mean float64
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	var sq float64
	for _, v := range vals {
		d := v - mean
		sq += d * d
	}
	return ir.NewFloat(math.Sqrt(sq / float64(len(vals))))
}

// percentile linearly interpolates between the two sorted samples that
// bracket rank p*(n-1), the common "linear interpolation" definition.
func percentile(rs []row, col string, p float64) ir.Value {
	var vals []float64
	for _, r := range rs {
		v, ok := r[col]
		if !ok || v.IsNull() || !isNumeric(v) {
			continue
		}
		vals = append(vals, asFloat(v))
	}
	if len(vals) == 0 {
		return ir.Null()
	}
	sort.Float64s(vals)
	if p <= 0 {
		return ir.NewFloat(vals[0])
	}
	if p >= 1 {
		return ir.NewFloat(vals[len(vals)-1])
	}
	idx := p * float64(len(vals)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return ir.NewFloat(vals[lo])
	}
	frac := idx - float64(lo)
	return ir.NewFloat(vals[lo]*(1-frac) + vals[hi]*frac)
}

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

	"github.com/launix-de/lumadb/internal/ir"
	"github.com/launix-de/lumadb/internal/shard"
	"github.com/launix-de/lumadb/internal/storage"
)

// runVectorSearch ranks every live row by distance to op.Vector under
// op.Metric and returns the K closest Sealed
// segments answer through their prebuilt per-column HNSW index (built in
// BuildSegment); the unsealed memtable — too small and too volatile to
// amortize building an HNSW graph — is searched with a throwaway
// FlatIndex instead, matching hnsw.go's documented split between the
// approximate segment index and the exact small-data baseline.
func runVectorSearch(state shard.ShardState, op ir.Operation) []row {
	metric := storageMetric(op.Metric)
	type hit struct {
		r    row
		dist float32
	}
	var hits []hit

	flat := storage.NewFlatIndex(metric)
	var memRows []row
	for _, r := range state.Memtable.All() {
		m := rowFromMemtableRow(r)
		v, ok := m[op.VectorColumn]
		if !ok || v.IsNull() || len(v.Vector()) == 0 {
			continue
		}
		flat.Add(uint64(len(memRows)), v.Vector())
		memRows = append(memRows, m)
	}
	for _, vh := range flat.Search(op.Vector, op.K) {
		hits = append(hits, hit{r: memRows[vh.ID], dist: vh.Distance})
	}

	for _, seg := range state.Segments {
		idx, ok := seg.VectorIndex[op.VectorColumn]
		if !ok {
			continue
		}
		for _, vh := range idx.Search(op.Vector, op.K, op.K*4) {
			hits = append(hits, hit{r: rowFromSegment(seg, uint(vh.ID)), dist: vh.Distance})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
	if len(hits) > op.K {
		hits = hits[:op.K]
	}
	out := make([]row, len(hits))
	for i, h := range hits {
		m := cloneRow(h.r)
		m["_distance"] = ir.NewFloat(float64(h.dist))
		out[i] = m
	}
	return out
}

func storageMetric(m ir.VectorMetric) storage.VectorMetric {
	switch m {
	case ir.MetricCosine:
		return storage.MetricCosine
	case ir.MetricDotProduct:
		return storage.MetricDot
	default:
		return storage.MetricL2
	}
}

// runTextSearch returns every row whose TextColumn matches every token
// of op.TextQuery (AND semantics). Sealed segments
// answer through their prebuilt inverted index; the memtable is
// token-matched directly since it has none built yet.
func runTextSearch(state shard.ShardState, op ir.Operation) []row {
	var out []row
	for _, r := range state.Memtable.All() {
		m := rowFromMemtableRow(r)
		v, ok := m[op.TextColumn]
		if !ok || v.IsNull() {
			continue
		}
		tmp := storage.BuildTextIndex([]ir.Value{v})
		if len(tmp.Search(op.TextQuery)) > 0 {
			out = append(out, m)
		}
	}
	for _, seg := range state.Segments {
		idx, ok := seg.TextIndex[op.TextColumn]
		if !ok {
			continue
		}
		for _, rowID := range idx.Search(op.TextQuery) {
			out = append(out, rowFromSegment(seg, uint(rowID)))
		}
	}
	return out
}

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

package storage

import (
	"sort"

	"github.com/launix-de/lumadb/internal/ir"
)

// TimeIndex is a sorted index from timestamp to row position, letting a
// range scan binary-search its starting row instead of scanning every
// row in a segment. It is dense: every non-null row gets an entry, with
// no sampling at a fixed granularity.
type TimeIndex struct {
	micros []int64 // sorted ascending, parallel to rows []
	rows   []uint
}

// BuildTimeIndex indexes a timestamp column's values by row position.
// Null timestamps are skipped: a row with no timestamp cannot be time
// ranged and is only reachable via a full scan.
func BuildTimeIndex(values []ir.Value) *TimeIndex {
	idx := &TimeIndex{}
	type pair struct {
		t   int64
		row uint
	}
	pairs := make([]pair, 0, len(values))
	for i, v := range values {
		if v.IsNull() {
			continue
		}
		pairs = append(pairs, pair{v.Time().UnixMicro(), uint(i)})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].t < pairs[j].t })
	idx.micros = make([]int64, len(pairs))
	idx.rows = make([]uint, len(pairs))
	for i, p := range pairs {
		idx.micros[i] = p.t
		idx.rows[i] = p.row
	}
	return idx
}

// RowsInRange returns the row positions whose timestamp falls in
// [from, to], inclusive, in ascending timestamp order.
func (t *TimeIndex) RowsInRange(from, to int64) []uint {
	lo := sort.Search(len(t.micros), func(i int) bool { return t.micros[i] >= from })
	hi := sort.Search(len(t.micros), func(i int) bool { return t.micros[i] > to })
	if lo >= hi {
		return nil
	}
	out := make([]uint, hi-lo)
	copy(out, t.rows[lo:hi])
	return out
}

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

import "github.com/launix-de/lumadb/internal/ir"

// chooseEncoding implements the segment-build policy:
// timestamps -> DeltaOfDelta, low-cardinality text -> Dictionary,
// otherwise Plain (numeric columns additionally get FOR/bit-packing via
// intColumn, a refinement memcp's own analyzer applies in
// storage/shard.go's rebuild()). A run-length pass precedes both when
// the sampled data is almost constant, since RLE dominates any other
// encoding in that case.
func chooseEncoding(colType string, values []ir.Value) ColumnStorage {
	if len(values) == 0 {
		return newPlainColumn()
	}
	if isRunCompressible(values) {
		return newRLEColumn()
	}
	switch colType {
	case "timestamp", "date", "time":
		if allTimeLike(values) {
			return newDeltaOfDeltaColumn()
		}
	}
	kind := dominantKind(values)
	switch kind {
	case ir.KindInt, ir.KindBool, ir.KindDate, ir.KindTime, ir.KindTimestamp:
		return newIntColumn()
	case ir.KindText:
		if lowCardinality(values) {
			return newDictColumn()
		}
	}
	return newPlainColumn()
}

// isRunCompressible samples up to 256 values and reports whether runs
// average at least 8 rows: cheap enough to check eagerly, and a clear
// win for RLE whenever true.
func isRunCompressible(values []ir.Value) bool {
	n := len(values)
	sample := n
	if sample > 256 {
		sample = 256
	}
	if sample < 8 {
		return false
	}
	runs := 1
	for i := 1; i < sample; i++ {
		if !valuesEqualOrBothNull(values[i-1], values[i]) {
			runs++
		}
	}
	return sample/runs >= 8
}

func allTimeLike(values []ir.Value) bool {
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		switch v.Kind() {
		case ir.KindTimestamp, ir.KindDate, ir.KindTime:
		default:
			return false
		}
	}
	return true
}

func dominantKind(values []ir.Value) ir.Kind {
	counts := make(map[ir.Kind]int)
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		counts[v.Kind()]++
	}
	var best ir.Kind
	var bestCount int
	for k, c := range counts {
		if c > bestCount {
			best, bestCount = k, c
		}
	}
	return best
}

func lowCardinality(values []ir.Value) bool {
	seen := make(map[string]struct{})
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		seen[v.Text()] = struct{}{}
		if len(seen)*4 > len(values) {
			return false // more than 25% distinct: not worth dictionary-encoding
		}
	}
	return true
}

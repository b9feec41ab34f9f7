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
	"github.com/google/btree"
	"github.com/launix-de/lumadb/internal/ir"
)

// labelEntry is a btree item mapping one distinct label value's hash to
// the sorted row-id bitmap (as a []uint32 run list) of rows holding it.
// Using btree.Item here mirrors memcp's choice of google/btree for
// ordered indices elsewhere in storage/index.go.
type labelEntry struct {
	hash uint64
	rows []uint32
}

func (e *labelEntry) Less(than btree.Item) bool {
	return e.hash < than.(*labelEntry).hash
}

// BitmapIndex is an equality index over a low-cardinality "label"
// column: hash(value) -> sorted list of row ids A
// btree keeps entries ordered by hash for cheap point lookup and range
// iteration over hash buckets.
type BitmapIndex struct {
	tree   *btree.BTree
	values map[uint64]ir.Value // first value observed per hash, for collision resolution
}

// BuildBitmapIndex scans a column once and buckets row ids by value hash.
func BuildBitmapIndex(values []ir.Value) *BitmapIndex {
	idx := &BitmapIndex{
		tree:   btree.New(32),
		values: make(map[uint64]ir.Value),
	}
	buckets := make(map[uint64][]uint32)
	for i, v := range values {
		if v.IsNull() {
			continue
		}
		h := hashValue(v)
		buckets[h] = append(buckets[h], uint32(i))
		if _, ok := idx.values[h]; !ok {
			idx.values[h] = v
		}
	}
	for h, rows := range buckets {
		idx.tree.ReplaceOrInsert(&labelEntry{hash: h, rows: rows})
	}
	return idx
}

// Lookup returns the row ids whose value equals v, or nil if none.
func (b *BitmapIndex) Lookup(v ir.Value) []uint32 {
	h := hashValue(v)
	item := b.tree.Get(&labelEntry{hash: h})
	if item == nil {
		return nil
	}
	entry := item.(*labelEntry)
	if !b.values[h].Equal(v) {
		return nil // hash collision against a different value: no match
	}
	return entry.rows
}

// Cardinality reports the number of distinct indexed values.
func (b *BitmapIndex) Cardinality() int {
	return b.tree.Len()
}

/*
Copyright (C) 2023, 2026  Carl-Philip Hänsch

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
	"math/bits"

	"github.com/launix-de/lumadb/internal/ir"
)

// intColumn is a frame-of-reference + bit-packed integer encoding,
// adapted from memcp's storage/storage-int.go StorageInt: values
// are stored offset from the column minimum, packed to the minimal bit
// width that represents max-min (plus one code reserved for null).
type intColumn struct {
	chunk   []uint64
	bitsize uint8
	offset  int64
	min, max int64
	count   uint64
	hasNull bool
	null    uint64
	distinct map[int64]struct{}
}

func newIntColumn() *intColumn { return &intColumn{} }

func (s *intColumn) String() string     { return "FOR/BitPacked" }
func (s *intColumn) Encoding() Encoding { return EncodingFOR }
func (s *intColumn) RowCount() uint     { return uint(s.count) }
func (s *intColumn) DistinctCount() uint { return uint(len(s.distinct)) }
func (s *intColumn) NullBitmap() []bool {
	if !s.hasNull {
		return nil
	}
	out := make([]bool, s.count)
	for i := uint64(0); i < s.count; i++ {
		if s.getRaw(uint(i)) == s.null {
			out[i] = true
		}
	}
	return out
}

func (s *intColumn) getRaw(i uint) uint64 {
	bitpos := i * uint(s.bitsize)
	v := s.chunk[bitpos/64] << (bitpos % 64)
	if bitpos%64+uint(s.bitsize) > 64 {
		v |= s.chunk[bitpos/64+1] >> (64 - bitpos%64)
	}
	return v >> (64 - uint(s.bitsize))
}

func (s *intColumn) GetValue(i uint) ir.Value {
	v := s.getRaw(i)
	if s.hasNull && v == s.null {
		return ir.Null()
	}
	return ir.NewInt(int64(v) + s.offset)
}

func (s *intColumn) prepare() {
	s.bitsize = 0
	s.offset = int64(1)<<62 - 1
	s.max = -s.offset - 1
	s.min = s.offset
	s.hasNull = false
	s.distinct = make(map[int64]struct{})
}

func (s *intColumn) scan(i uint, value ir.Value) {
	if value.IsNull() {
		s.hasNull = true
		return
	}
	v := toInt64(value)
	if v < s.min {
		s.min = v
	}
	if v > s.max {
		s.max = v
	}
	s.distinct[v] = struct{}{}
}

func (s *intColumn) proposeCompression() ColumnStorage { return nil }

func (s *intColumn) init(count uint) {
	s.offset = s.min
	span := s.max - s.offset
	if span < 0 {
		span = 0
	}
	if s.hasNull {
		span++
		s.null = uint64(span)
	}
	s.bitsize = uint8(bits.Len64(uint64(span)))
	if s.bitsize == 0 {
		s.bitsize = 1
	}
	if count == 0 {
		s.chunk = nil
	} else {
		s.chunk = make([]uint64, ((count-1)*uint(s.bitsize)+65)/64+1)
	}
	s.count = uint64(count)
}

func (s *intColumn) build(i uint, value ir.Value) {
	var vi int64
	if value.IsNull() {
		vi = int64(s.null)
	} else {
		vi = toInt64(value) - s.offset
	}
	bitpos := i * uint(s.bitsize)
	v := uint64(vi) << (64 - uint(s.bitsize))
	s.chunk[bitpos/64] |= v >> (bitpos % 64)
	if bitpos%64+uint(s.bitsize) > 64 {
		s.chunk[bitpos/64+1] |= v << (64 - bitpos%64)
	}
}

func (s *intColumn) finish() {}

func toInt64(v ir.Value) int64 {
	switch v.Kind() {
	case ir.KindFloat:
		return int64(v.Float())
	case ir.KindBool:
		return v.Int()
	default:
		return v.Int()
	}
}

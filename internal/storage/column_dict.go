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

import "github.com/launix-de/lumadb/internal/ir"

// dictColumn is a dictionary encoding for low-cardinality text,
// adapted from memcp's storage/storage-string.go StorageString:
// distinct strings are interned once, rows store only the dictionary
// code (via intColumn, reusing its FOR/bit-packing).
type dictColumn struct {
	dict      []string
	reverse   map[string]int
	codes     *intColumn
	hasNull   bool
	nullCode  int
}

func newDictColumn() *dictColumn { return &dictColumn{} }

func (s *dictColumn) String() string     { return "Dictionary" }
func (s *dictColumn) Encoding() Encoding { return EncodingDictionary }
func (s *dictColumn) RowCount() uint     { return s.codes.RowCount() }
func (s *dictColumn) DistinctCount() uint { return uint(len(s.dict)) }
func (s *dictColumn) NullBitmap() []bool  { return s.codes.NullBitmap() }

func (s *dictColumn) GetValue(i uint) ir.Value {
	cv := s.codes.GetValue(i)
	if cv.IsNull() {
		return ir.Null()
	}
	return ir.NewText(s.dict[cv.Int()])
}

func (s *dictColumn) prepare() {
	s.reverse = make(map[string]int)
	s.codes = newIntColumn()
	s.codes.prepare()
}

func (s *dictColumn) scan(i uint, v ir.Value) {
	if v.IsNull() {
		s.codes.scan(i, v)
		return
	}
	text := v.Text()
	code, ok := s.reverse[text]
	if !ok {
		code = len(s.dict)
		s.dict = append(s.dict, text)
		s.reverse[text] = code
	}
	s.codes.scan(i, ir.NewInt(int64(code)))
}

func (s *dictColumn) proposeCompression() ColumnStorage { return nil }

func (s *dictColumn) init(count uint) { s.codes.init(count) }

func (s *dictColumn) build(i uint, v ir.Value) {
	if v.IsNull() {
		s.codes.build(i, v)
		return
	}
	code := s.reverse[v.Text()]
	s.codes.build(i, ir.NewInt(int64(code)))
}

func (s *dictColumn) finish() { s.codes.finish() }

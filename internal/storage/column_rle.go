package storage

import "github.com/launix-de/lumadb/internal/ir"

// rleColumn run-length-encodes a column whose values repeat in long
// runs (e.g. a status flag, a constant partition label). Each run is
// (value, length); GetValue does a linear scan over runs, which is
// acceptable since this encoding is only chosen when runs are few
// relative to row count (see analyzer.go's chooseEncoding).
type rleColumn struct {
	runValues []ir.Value
	runLens   []uint
	count     uint
	distinct  map[uint64]struct{}
}

func newRLEColumn() *rleColumn { return &rleColumn{} }

func (s *rleColumn) String() string     { return "RLE" }
func (s *rleColumn) Encoding() Encoding { return EncodingRLE }
func (s *rleColumn) RowCount() uint     { return s.count }
func (s *rleColumn) DistinctCount() uint { return uint(len(s.distinct)) }
func (s *rleColumn) NullBitmap() []bool {
	var hasNull bool
	for _, v := range s.runValues {
		if v.IsNull() {
			hasNull = true
			break
		}
	}
	if !hasNull {
		return nil
	}
	out := make([]bool, s.count)
	var idx uint
	for ri, v := range s.runValues {
		for j := uint(0); j < s.runLens[ri]; j++ {
			out[idx] = v.IsNull()
			idx++
		}
	}
	return out
}

func (s *rleColumn) GetValue(i uint) ir.Value {
	var idx uint
	for ri, l := range s.runLens {
		if i < idx+l {
			return s.runValues[ri]
		}
		idx += l
	}
	panic("rleColumn: index out of range")
}

func (s *rleColumn) prepare() { s.distinct = make(map[uint64]struct{}) }
func (s *rleColumn) scan(i uint, v ir.Value) {
	if !v.IsNull() {
		s.distinct[hashValue(v)] = struct{}{}
	}
}
func (s *rleColumn) proposeCompression() ColumnStorage { return nil }
func (s *rleColumn) init(count uint)                    { s.count = count }
func (s *rleColumn) build(i uint, v ir.Value) {
	if len(s.runValues) > 0 && valuesEqualOrBothNull(s.runValues[len(s.runValues)-1], v) {
		s.runLens[len(s.runLens)-1]++
		return
	}
	s.runValues = append(s.runValues, v)
	s.runLens = append(s.runLens, 1)
}
func (s *rleColumn) finish() {}

func valuesEqualOrBothNull(a, b ir.Value) bool {
	if a.IsNull() && b.IsNull() {
		return true
	}
	if a.IsNull() != b.IsNull() {
		return false
	}
	return a.Equal(b)
}

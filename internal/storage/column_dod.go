package storage

import "github.com/launix-de/lumadb/internal/ir"

// deltaOfDeltaColumn encodes a timestamp column as the delta of
// successive deltas, the standard Gorilla-style layout for monotonic or
// near-monotonic time series. Stored as int64 deltas-of-deltas plus
// the two seed values needed to reconstruct the sequence.
type deltaOfDeltaColumn struct {
	first, second int64 // seed values (first two raw timestamps)
	deltas        []int64 // delta-of-delta for rows [2:]
	count         uint
	hasNull       bool
	nulls         []bool
	distinct      map[int64]struct{}
}

func newDeltaOfDeltaColumn() *deltaOfDeltaColumn { return &deltaOfDeltaColumn{} }

func (s *deltaOfDeltaColumn) String() string     { return "DeltaOfDelta" }
func (s *deltaOfDeltaColumn) Encoding() Encoding { return EncodingDeltaOfDelta }
func (s *deltaOfDeltaColumn) RowCount() uint     { return s.count }
func (s *deltaOfDeltaColumn) DistinctCount() uint { return uint(len(s.distinct)) }
func (s *deltaOfDeltaColumn) NullBitmap() []bool {
	if !s.hasNull {
		return nil
	}
	return s.nulls
}

func (s *deltaOfDeltaColumn) GetValue(i uint) ir.Value {
	if s.hasNull && s.nulls[i] {
		return ir.Null()
	}
	if i == 0 {
		return ir.NewTimestamp(timeFromMicros(s.first))
	}
	if i == 1 {
		return ir.NewTimestamp(timeFromMicros(s.second))
	}
	prev, prevDelta := s.second, s.second-s.first
	for j := uint(2); j <= i; j++ {
		dod := s.deltas[j-2]
		delta := prevDelta + dod
		cur := prev + delta
		prev, prevDelta = cur, delta
		if j == i {
			return ir.NewTimestamp(timeFromMicros(cur))
		}
	}
	panic("unreachable")
}

func (s *deltaOfDeltaColumn) prepare() { s.distinct = make(map[int64]struct{}) }
func (s *deltaOfDeltaColumn) scan(i uint, v ir.Value) {
	if v.IsNull() {
		s.hasNull = true
		return
	}
	s.distinct[v.Time().UnixMicro()] = struct{}{}
}
func (s *deltaOfDeltaColumn) proposeCompression() ColumnStorage { return nil }

func (s *deltaOfDeltaColumn) init(count uint) {
	s.count = count
	if s.hasNull {
		s.nulls = make([]bool, count)
	}
	if count > 2 {
		s.deltas = make([]int64, count-2)
	}
}

func (s *deltaOfDeltaColumn) build(i uint, v ir.Value) {
	if s.hasNull {
		s.nulls[i] = v.IsNull()
	}
	if v.IsNull() {
		return
	}
	us := v.Time().UnixMicro()
	switch i {
	case 0:
		s.first = us
	case 1:
		s.second = us
	default:
		prev := s.reconstructRaw(i - 1)
		prevPrev := s.reconstructRaw(i - 2)
		prevDelta := prev - prevPrev
		delta := us - prev
		s.deltas[i-2] = delta - prevDelta
	}
}

// reconstructRaw recomputes the raw micros for row i during the single
// forward build() pass; build is always called in increasing i order by
// BuildColumn, so this only ever re-walks already-written state.
func (s *deltaOfDeltaColumn) reconstructRaw(i uint) int64 {
	if i == 0 {
		return s.first
	}
	if i == 1 {
		return s.second
	}
	prev, prevDelta := s.second, s.second-s.first
	for j := uint(2); j <= i; j++ {
		delta := prevDelta + s.deltas[j-2]
		cur := prev + delta
		prev, prevDelta = cur, delta
	}
	return prev
}

func (s *deltaOfDeltaColumn) finish() {}

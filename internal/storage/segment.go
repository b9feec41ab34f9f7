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
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/launix-de/lumadb/internal/ir"
)

// ColumnChunk is one column's built encoding plus the compression codec
// applied to its serialized bytes
type ColumnChunk struct {
	Name        string
	Type        string
	Storage     ColumnStorage
	Compression Compression
}

// Segment is an immutable columnar slice of a shard's data, built once
// from a closed memtable and never mutated afterwards.
// Segments are the unit read by a Scan operation and the unit evicted
// by the block cache.
type Segment struct {
	ID        uint64
	MinTime   int64 // unix micros, inclusive
	MaxTime   int64 // unix micros, inclusive
	RowCount  uint
	Columns   []ColumnChunk
	colIndex  map[string]int

	TimeIndex   *TimeIndex
	LabelIndex  map[string]*BitmapIndex // column name -> label index
	TextIndex   map[string]*TextIndex   // column name -> inverted text index
	VectorIndex map[string]*HNSW        // column name -> vector index, row index as node id
}

// BuildSegment constructs a segment from column-major row data, choosing
// each column's encoding via chooseEncoding/BuildColumn and building a
// time index when a column named timeCol is present, mirroring the
// memcp's storageShard.rebuild() in storage/shard.go.
func BuildSegment(id uint64, colTypes map[string]string, colValues map[string][]ir.Value, colOrder []string, timeCol string) *Segment {
	seg := &Segment{
		ID:         id,
		colIndex:    make(map[string]int, len(colOrder)),
		LabelIndex:  make(map[string]*BitmapIndex),
		TextIndex:   make(map[string]*TextIndex),
		VectorIndex: make(map[string]*HNSW),
	}
	seg.MinTime = int64(1)<<62 - 1
	seg.MaxTime = -(int64(1)<<62 - 1)

	for ci, name := range colOrder {
		values := colValues[name]
		colType := colTypes[name]
		cs := BuildColumn(colType, values)
		seg.Columns = append(seg.Columns, ColumnChunk{
			Name:        name,
			Type:        colType,
			Storage:     cs,
			Compression: defaultCompressionFor(cs.Encoding()),
		})
		seg.colIndex[name] = ci
		if ci == 0 {
			seg.RowCount = cs.RowCount()
		}

		if name == timeCol {
			seg.TimeIndex = BuildTimeIndex(values)
			for _, v := range values {
				if v.IsNull() {
					continue
				}
				us := v.Time().UnixMicro()
				if us < seg.MinTime {
					seg.MinTime = us
				}
				if us > seg.MaxTime {
					seg.MaxTime = us
				}
			}
		}
		if colType == "label" {
			seg.LabelIndex[name] = BuildBitmapIndex(values)
		}
		if colType == "text" {
			seg.TextIndex[name] = BuildTextIndex(values)
		}
		if colType == "vector" {
			seg.VectorIndex[name] = buildVectorIndex(values)
		}
	}
	if seg.RowCount == 0 && len(colOrder) > 0 {
		seg.RowCount = seg.Columns[0].Storage.RowCount()
	}
	return seg
}

// Column looks up a column chunk by name.
func (s *Segment) Column(name string) (ColumnChunk, bool) {
	i, ok := s.colIndex[name]
	if !ok {
		return ColumnChunk{}, false
	}
	return s.Columns[i], true
}

// OverlapsTimeRange reports whether the segment can contain rows in
// [from, to]; used by the executor to skip whole segments before
// touching any column.
func (s *Segment) OverlapsTimeRange(from, to int64) bool {
	if s.TimeIndex == nil {
		return true
	}
	return s.MinTime <= to && s.MaxTime >= from
}

// buildVectorIndex builds a segment's HNSW index for one vector column,
// keyed by row index so a search hit maps straight back to GetValue's
// row numbering. Dimension is taken from the first non-null vector.
func buildVectorIndex(values []ir.Value) *HNSW {
	dim := 0
	for _, v := range values {
		if !v.IsNull() && len(v.Vector()) > 0 {
			dim = len(v.Vector())
			break
		}
	}
	idx := NewHNSW(dim, 0, 0, MetricL2)
	for i, v := range values {
		if v.IsNull() {
			continue
		}
		idx.Add(uint64(i), v.Vector())
	}
	return idx
}

func defaultCompressionFor(e Encoding) Compression {
	switch e {
	case EncodingDeltaOfDelta:
		return CompressionGorilla
	case EncodingDictionary, EncodingRLE, EncodingFOR:
		return CompressionLZ4
	default:
		return CompressionZSTD
	}
}

// segmentMagic identifies the on-disk segment file format; bumped
// whenever the layout below changes incompatibly.
const segmentMagic uint32 = 0x6c75_6d61 // "luma"

// WriteSegmentMeta writes the segment's header to a new file at path:
// magic, id, time range, row count, and each column's name, type,
// encoding and compression byte. The column values themselves are not
// serialized here or anywhere else in this package.
func WriteSegmentMeta(path string, s *Segment) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()

	if err := binary.Write(w, binary.BigEndian, segmentMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, s.ID); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint64(s.MinTime)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint64(s.MaxTime)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint64(s.RowCount)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(s.Columns))); err != nil {
		return err
	}
	for _, c := range s.Columns {
		if err := writeLengthPrefixed(w, []byte(c.Name)); err != nil {
			return err
		}
		if err := writeLengthPrefixed(w, []byte(c.Type)); err != nil {
			return err
		}
		if err := w.WriteByte(byte(c.Storage.Encoding())); err != nil {
			return err
		}
		if err := w.WriteByte(byte(c.Compression)); err != nil {
			return err
		}
	}
	return nil
}

func writeLengthPrefixed(w *bufio.Writer, b []byte) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// ReadSegmentMeta reads back the header written by WriteSegmentMeta,
// validating the magic number so a truncated or foreign file fails
// fast rather than silently misreading garbage.
func ReadSegmentMeta(path string) (id uint64, minTime, maxTime int64, rowCount uint, columns []ColumnChunk, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, 0, 0, nil, err
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var magic uint32
	if err = binary.Read(r, binary.BigEndian, &magic); err != nil {
		return
	}
	if magic != segmentMagic {
		err = fmt.Errorf("storage: bad segment file magic %08x", magic)
		return
	}
	if err = binary.Read(r, binary.BigEndian, &id); err != nil {
		return
	}
	var minU, maxU, rowU uint64
	if err = binary.Read(r, binary.BigEndian, &minU); err != nil {
		return
	}
	if err = binary.Read(r, binary.BigEndian, &maxU); err != nil {
		return
	}
	if err = binary.Read(r, binary.BigEndian, &rowU); err != nil {
		return
	}
	minTime, maxTime, rowCount = int64(minU), int64(maxU), uint(rowU)

	var ncols uint32
	if err = binary.Read(r, binary.BigEndian, &ncols); err != nil {
		return
	}
	columns = make([]ColumnChunk, ncols)
	for i := range columns {
		name, rerr := readLengthPrefixed(r)
		if rerr != nil {
			err = rerr
			return
		}
		typ, rerr := readLengthPrefixed(r)
		if rerr != nil {
			err = rerr
			return
		}
		enc, rerr := r.ReadByte()
		if rerr != nil {
			err = rerr
			return
		}
		comp, rerr := r.ReadByte()
		if rerr != nil {
			err = rerr
			return
		}
		columns[i] = ColumnChunk{Name: string(name), Type: string(typ), Compression: Compression(comp)}
		_ = enc // the encoding byte is read but not used; returned chunks carry no Storage
	}
	return
}

func readLengthPrefixed(r *bufio.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := readFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

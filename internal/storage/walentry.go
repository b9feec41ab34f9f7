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
	"bytes"
	"encoding/binary"
	"io"

	"github.com/launix-de/lumadb/internal/ir"
)

// PendingSegment is the raw row data a WAL InsertSegment record carries:
// column-major values plus enough schema to rebuild a *Segment via
// BuildSegment on recovery.
type PendingSegment struct {
	ID       uint64
	TimeCol  string
	ColOrder []string
	ColTypes map[string]string
	ColData  map[string][]ir.Value
}

// EncodeInsertSegment serializes p as a WAL record body (kind byte +
// payload), ready to hand to WAL.Append.
func EncodeInsertSegment(p *PendingSegment) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(WALInsertSegment))

	var idBuf [8]byte
	binary.BigEndian.PutUint64(idBuf[:], p.ID)
	buf.Write(idBuf[:])

	if err := writeStr(&buf, p.TimeCol); err != nil {
		return nil, err
	}
	if err := writeU32Field(&buf, uint32(len(p.ColOrder))); err != nil {
		return nil, err
	}
	for _, name := range p.ColOrder {
		if err := writeStr(&buf, name); err != nil {
			return nil, err
		}
		if err := writeStr(&buf, p.ColTypes[name]); err != nil {
			return nil, err
		}
		values := p.ColData[name]
		if err := writeU32Field(&buf, uint32(len(values))); err != nil {
			return nil, err
		}
		for _, v := range values {
			if err := ir.EncodeValue(&buf, v); err != nil {
				return nil, err
			}
		}
	}
	return buf.Bytes(), nil
}

// DecodeInsertSegment reverses EncodeInsertSegment on a record body
// that has already had its kind byte stripped (see RecoverWAL).
func DecodeInsertSegment(body []byte) (*PendingSegment, error) {
	r := bytes.NewReader(body)
	p := &PendingSegment{ColTypes: make(map[string]string), ColData: make(map[string][]ir.Value)}

	var idBuf [8]byte
	if _, err := io.ReadFull(r, idBuf[:]); err != nil {
		return nil, err
	}
	p.ID = binary.BigEndian.Uint64(idBuf[:])

	timeCol, err := readStr(r)
	if err != nil {
		return nil, err
	}
	p.TimeCol = timeCol

	ncols, err := readU32Field(r)
	if err != nil {
		return nil, err
	}
	p.ColOrder = make([]string, ncols)
	for i := range p.ColOrder {
		name, err := readStr(r)
		if err != nil {
			return nil, err
		}
		colType, err := readStr(r)
		if err != nil {
			return nil, err
		}
		nvals, err := readU32Field(r)
		if err != nil {
			return nil, err
		}
		values := make([]ir.Value, nvals)
		for j := range values {
			values[j], err = ir.DecodeValue(r)
			if err != nil {
				return nil, err
			}
		}
		p.ColOrder[i] = name
		p.ColTypes[name] = colType
		p.ColData[name] = values
	}
	return p, nil
}

// BuildSegmentFromPending replays a recovered PendingSegment into an
// immutable *Segment, the final step of WAL recovery.
func BuildSegmentFromPending(p *PendingSegment) *Segment {
	return BuildSegment(p.ID, p.ColTypes, p.ColData, p.ColOrder, p.TimeCol)
}

func writeStr(w io.Writer, s string) error {
	if err := writeU32Field(w, uint32(len(s))); err != nil {
		return err
	}
	return writeAll(w, []byte(s))
}

func writeU32Field(w io.Writer, n uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], n)
	_, err := w.Write(buf[:])
	return err
}

func writeAll(w io.Writer, b []byte) error {
	_, err := w.Write(b)
	return err
}

func readU32Field(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func readStr(r io.Reader) (string, error) {
	n, err := readU32Field(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

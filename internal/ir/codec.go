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

package ir

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// EncodeValue writes a self-describing binary form of v: a one-byte
// kind tag followed by the kind's payload. Used by the WAL and segment
// writers, which need a stable encoding independent of any protocol's
// own wire format.
func EncodeValue(w io.Writer, v Value) error {
	if _, err := w.Write([]byte{byte(v.kind)}); err != nil {
		return err
	}
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return writeU8(w, uint8(v.i))
	case KindInt, KindDate, KindTime, KindTimestamp:
		return writeU64(w, uint64(v.i))
	case KindFloat:
		return writeU64(w, math.Float64bits(v.f))
	case KindText, KindJSON, KindDecimal:
		return writeBytes(w, []byte(v.s))
	case KindBytes:
		return writeBytes(w, v.b)
	case KindUUID:
		_, err := w.Write(v.u[:])
		return err
	case KindObjectID:
		_, err := w.Write(v.oid[:])
		return err
	case KindVector:
		if err := writeU32(w, uint32(len(v.vec))); err != nil {
			return err
		}
		for _, f := range v.vec {
			if err := writeU32(w, math.Float32bits(f)); err != nil {
				return err
			}
		}
		return nil
	case KindList, KindSet:
		if err := writeU32(w, uint32(len(v.list))); err != nil {
			return err
		}
		for _, e := range v.list {
			if err := EncodeValue(w, e); err != nil {
				return err
			}
		}
		return nil
	case KindMap:
		if err := writeU32(w, uint32(len(v.m))); err != nil {
			return err
		}
		for k, mv := range v.m {
			if err := writeBytes(w, []byte(k)); err != nil {
				return err
			}
			if err := EncodeValue(w, mv); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("ir: cannot encode unknown kind %d", v.kind)
	}
}

// DecodeValue reverses EncodeValue.
func DecodeValue(r io.Reader) (Value, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return Value{}, err
	}
	kind := Kind(tag[0])
	switch kind {
	case KindNull:
		return Null(), nil
	case KindBool:
		b, err := readU8(r)
		if err != nil {
			return Value{}, err
		}
		return NewBool(b != 0), nil
	case KindInt:
		i, err := readU64(r)
		if err != nil {
			return Value{}, err
		}
		return NewInt(int64(i)), nil
	case KindDate, KindTime, KindTimestamp:
		i, err := readU64(r)
		if err != nil {
			return Value{}, err
		}
		v := Value{kind: kind, i: int64(i)}
		return v, nil
	case KindFloat:
		bits, err := readU64(r)
		if err != nil {
			return Value{}, err
		}
		return NewFloat(math.Float64frombits(bits)), nil
	case KindText:
		b, err := readBytes(r)
		if err != nil {
			return Value{}, err
		}
		return NewText(string(b)), nil
	case KindJSON:
		b, err := readBytes(r)
		if err != nil {
			return Value{}, err
		}
		return NewJSON(string(b)), nil
	case KindDecimal:
		b, err := readBytes(r)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindDecimal, s: string(b)}, nil
	case KindBytes:
		b, err := readBytes(r)
		if err != nil {
			return Value{}, err
		}
		return NewBytes(b), nil
	case KindUUID:
		var buf [16]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return Value{}, err
		}
		var u [16]byte
		copy(u[:], buf[:])
		return NewUUID(u), nil
	case KindObjectID:
		var o ObjectID
		if _, err := io.ReadFull(r, o[:]); err != nil {
			return Value{}, err
		}
		return NewObjectID(o), nil
	case KindVector:
		n, err := readU32(r)
		if err != nil {
			return Value{}, err
		}
		vec := make([]float32, n)
		for i := range vec {
			bits, err := readU32(r)
			if err != nil {
				return Value{}, err
			}
			vec[i] = math.Float32frombits(bits)
		}
		return NewVector(vec), nil
	case KindList, KindSet:
		n, err := readU32(r)
		if err != nil {
			return Value{}, err
		}
		list := make([]Value, n)
		for i := range list {
			list[i], err = DecodeValue(r)
			if err != nil {
				return Value{}, err
			}
		}
		if kind == KindSet {
			return NewSet(list), nil
		}
		return NewList(list), nil
	case KindMap:
		n, err := readU32(r)
		if err != nil {
			return Value{}, err
		}
		m := make(map[string]Value, n)
		for i := uint32(0); i < n; i++ {
			k, err := readBytes(r)
			if err != nil {
				return Value{}, err
			}
			mv, err := DecodeValue(r)
			if err != nil {
				return Value{}, err
			}
			m[string(k)] = mv
		}
		return NewMap(m), nil
	default:
		return Value{}, fmt.Errorf("ir: cannot decode unknown kind %d", kind)
	}
}

func writeU8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func readU8(r io.Reader) (uint8, error) {
	var buf [1]byte
	_, err := io.ReadFull(r, buf[:])
	return buf[0], err
}

func writeU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func writeU64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := writeU32(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

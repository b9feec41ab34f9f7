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

// Package ir defines the intermediate representation shared by every
// wire protocol: the tagged Value union, the opaque Key used for shard
// routing, and the Operation/QueryPlan tree the executor evaluates.
package ir

import (
	"encoding/binary"
	"hash/maphash"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind tags the variant stored in a Value. Keep in sync with the
// constructors below; nothing outside this file should switch on an
// untyped interface{} to find out what a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindDecimal
	KindText
	KindBytes
	KindDate
	KindTime
	KindTimestamp
	KindUUID
	KindObjectID
	KindList
	KindMap
	KindSet
	KindJSON
	KindVector
)

// ObjectID is MongoDB's 12-byte document identifier.
type ObjectID [12]byte

// Value is a tagged union over every scalar and container type the
// gateway's wire protocols can carry. Equality is defined for every
// variant. Hashing is defined for every variant except List/Map/Set:
// Hash panics on those, so a container Value must not be hashed.
type Value struct {
	kind Kind
	i    int64       // KindInt, KindBool (0/1), KindDate/Time/Timestamp (unix micros)
	f    float64     // KindFloat
	s    string      // KindText, KindJSON, KindDecimal (decimal string form)
	b    []byte      // KindBytes
	u    uuid.UUID   // KindUUID
	oid  ObjectID    // KindObjectID
	list []Value     // KindList, KindSet
	m    map[string]Value // KindMap
	vec  []float32   // KindVector
}

func Null() Value                { return Value{kind: KindNull} }
func NewBool(b bool) Value        { v := Value{kind: KindBool}; if b { v.i = 1 }; return v }
func NewInt(i int64) Value        { return Value{kind: KindInt, i: i} }
func NewFloat(f float64) Value    { return Value{kind: KindFloat, f: f} }
func NewText(s string) Value      { return Value{kind: KindText, s: s} }
func NewBytes(b []byte) Value     { return Value{kind: KindBytes, b: b} }
func NewJSON(s string) Value      { return Value{kind: KindJSON, s: s} }
func NewUUID(u uuid.UUID) Value   { return Value{kind: KindUUID, u: u} }
func NewObjectID(o ObjectID) Value { return Value{kind: KindObjectID, oid: o} }
func NewList(items []Value) Value { return Value{kind: KindList, list: items} }
func NewSet(items []Value) Value  { return Value{kind: KindSet, list: items} }
func NewMap(m map[string]Value) Value { return Value{kind: KindMap, m: m} }
func NewVector(v []float32) Value { return Value{kind: KindVector, vec: v} }

func NewDecimal(d decimal.Decimal) Value { return Value{kind: KindDecimal, s: d.String()} }
func NewDate(t time.Time) Value          { return Value{kind: KindDate, i: t.UnixMicro()} }
func NewTime(t time.Time) Value          { return Value{kind: KindTime, i: t.UnixMicro()} }
func NewTimestamp(t time.Time) Value     { return Value{kind: KindTimestamp, i: t.UnixMicro()} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Bool() bool        { return v.i != 0 }
func (v Value) Int() int64        { return v.i }
func (v Value) Float() float64    { return v.f }
func (v Value) Text() string      { return v.s }
func (v Value) Bytes() []byte     { return v.b }
func (v Value) JSON() string      { return v.s }
func (v Value) UUID() uuid.UUID   { return v.u }
func (v Value) ObjectID() ObjectID { return v.oid }
func (v Value) List() []Value     { return v.list }
func (v Value) Map() map[string]Value { return v.m }
func (v Value) Vector() []float32 { return v.vec }

func (v Value) Decimal() decimal.Decimal {
	d, _ := decimal.NewFromString(v.s)
	return d
}
func (v Value) Time() time.Time { return time.UnixMicro(v.i).UTC() }

// Equal reports whether two values compare equal under the gateway's
// cross-protocol equality rules: same kind, same payload. Floats compare
// by IEEE-754 bit pattern so NaN equals NaN (needed for stable dedup and
// total-order sort).
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool, KindInt, KindDate, KindTime, KindTimestamp:
		return v.i == o.i
	case KindFloat:
		return math.Float64bits(v.f) == math.Float64bits(o.f)
	case KindText, KindJSON, KindDecimal:
		return v.s == o.s
	case KindBytes:
		return string(v.b) == string(o.b)
	case KindUUID:
		return v.u == o.u
	case KindObjectID:
		return v.oid == o.oid
	case KindVector:
		if len(v.vec) != len(o.vec) {
			return false
		}
		for i := range v.vec {
			if v.vec[i] != o.vec[i] {
				return false
			}
		}
		return true
	case KindList, KindSet:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, mv := range v.m {
			ov, ok := o.m[k]
			if !ok || !mv.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// Hash returns a 64-bit hash usable as a map/index key component.
// Maps and nested sets are excluded from hashing: using a
// List/Map/Set value as (part of) a hash-map key is a caller precondition
// violation and Hash panics rather than silently hashing garbage.
func (v Value) Hash(seed maphash.Seed) uint64 {
	var h maphash.Hash
	h.SetSeed(seed)
	h.WriteByte(byte(v.kind))
	switch v.kind {
	case KindNull:
	case KindBool, KindInt, KindDate, KindTime, KindTimestamp:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(v.i))
		h.Write(buf[:])
	case KindFloat:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v.f))
		h.Write(buf[:])
	case KindText, KindJSON, KindDecimal:
		h.WriteString(v.s)
	case KindBytes:
		h.Write(v.b)
	case KindUUID:
		h.Write(v.u[:])
	case KindObjectID:
		h.Write(v.oid[:])
	case KindVector:
		for _, f := range v.vec {
			var buf [4]byte
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
			h.Write(buf[:])
		}
	case KindList, KindMap, KindSet:
		panic("ir.Value.Hash: maps, sets and lists are excluded from hashing")
	}
	return h.Sum64()
}

// TotalOrderLess implements the total order used for sort stability
//: NaN and -0/+0 are ordered by bit pattern, not IEEE
// comparison semantics.
func (v Value) TotalOrderLess(o Value) bool {
	if v.kind != o.kind {
		return v.kind < o.kind
	}
	switch v.kind {
	case KindInt, KindBool, KindDate, KindTime, KindTimestamp:
		return v.i < o.i
	case KindFloat:
		return totalOrderFloatBits(v.f) < totalOrderFloatBits(o.f)
	case KindText, KindJSON, KindDecimal:
		return v.s < o.s
	case KindBytes:
		return string(v.b) < string(o.b)
	default:
		return false
	}
}

// totalOrderFloatBits maps IEEE-754 bits to a monotonically ordered
// unsigned integer so sorting by bit pattern behaves consistently across
// NaN and signed zero, matching the "total-order by bit
// pattern" requirement.
func totalOrderFloatBits(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits | (1 << 63)
}

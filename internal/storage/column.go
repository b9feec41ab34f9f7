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

// Package storage implements the write-ahead log, columnar segment
// store and in-memory indices: the durability and query-execution
// substrate reached only from inside a shard worker.
package storage

import (
	"github.com/launix-de/lumadb/internal/ir"
)

// Encoding names a column's on-disk layout
type Encoding uint8

const (
	EncodingPlain Encoding = iota
	EncodingDictionary
	EncodingRLE
	EncodingDelta
	EncodingDeltaOfDelta
	EncodingBitPacked
	EncodingFOR // frame-of-reference
)

// Compression names a chunk's compression codec
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionLZ4
	CompressionZSTD
	CompressionSnappy
	CompressionGorilla
)

// ColumnStorage is the buildup/read contract every column encoding
// implements, adapted from memcp's storage.go ColumnStorage
// interface: analyze in two passes (prepare/scan, then
// proposeCompression loops until settled), then store (init/build/finish).
type ColumnStorage interface {
	GetValue(i uint) ir.Value
	Encoding() Encoding
	String() string

	// analyze
	prepare()
	scan(i uint, v ir.Value)
	proposeCompression() ColumnStorage

	// store
	init(count uint)
	build(i uint, v ir.Value)
	finish()

	// NullBitmap reports which rows are null, or nil if the column has
	// no nulls.
	NullBitmap() []bool
	RowCount() uint
	DistinctCount() uint
}

// BuildColumn runs the prepare/scan/init/build/finish pipeline over
// values on the encoding chosen by chooseEncoding, mirroring the
// memcp's storageShard.rebuild() loop in storage/shard.go (which
// reruns scan after each proposeCompression until settled; here the
// choice is made by a single cheap pre-pass instead of an iterative
// propose loop, since the policy is static per column type rather
// than discovered by trial encodings).
func BuildColumn(colType string, values []ir.Value) ColumnStorage {
	cur := chooseEncoding(colType, values)
	cur.prepare()
	for i, v := range values {
		cur.scan(uint(i), v)
	}
	if next := cur.proposeCompression(); next != nil {
		cur = next
		cur.prepare()
		for i, v := range values {
			cur.scan(uint(i), v)
		}
	}
	cur.init(uint(len(values)))
	for i, v := range values {
		cur.build(uint(i), v)
	}
	cur.finish()
	return cur
}

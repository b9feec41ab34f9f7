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
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/compress/s2"
	"github.com/pierrec/lz4/v4"
)

// CompressChunk compresses a serialized column chunk with the codec
// named by c, ColumnChunk.compression attribute.
// CompressionGorilla returns the bytes unchanged: there is no byte-level
// Gorilla codec, and timestamp columns are already shrunk by the
// delta-of-delta column encoding (column_dod.go) before serialization.
func CompressChunk(data []byte, c Compression, level int) ([]byte, error) {
	switch c {
	case CompressionNone, CompressionGorilla:
		return data, nil
	case CompressionLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressionZSTD:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstdLevel(level)))
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	case CompressionSnappy:
		return s2.EncodeSnappy(nil, data), nil
	default:
		return nil, fmt.Errorf("storage: unknown compression codec %d", c)
	}
}

// DecompressChunk reverses CompressChunk.
func DecompressChunk(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone, CompressionGorilla:
		return data, nil
	case CompressionLZ4:
		r := lz4.NewReader(bytes.NewReader(data))
		return io.ReadAll(r)
	case CompressionZSTD:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	case CompressionSnappy:
		return s2.Decode(nil, data)
	default:
		return nil, fmt.Errorf("storage: unknown compression codec %d", c)
	}
}

func zstdLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 1:
		return zstd.SpeedFastest
	case level <= 3:
		return zstd.SpeedDefault
	case level <= 6:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

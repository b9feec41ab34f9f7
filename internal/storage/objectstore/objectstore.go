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

// Package objectstore abstracts where sealed segments and WAL files
// live once they leave a shard's local disk, mirroring memcp's
// multi-backend PersistenceEngine split (storage/persistence-*.go)
// generalized to named byte blobs instead of column/schema/log files.
package objectstore

import "io"

// Backend persists and retrieves named byte blobs (segment files, WAL
// snapshots) under a shard-scoped namespace. Implementations need not
// support partial reads; segments are read and written whole.
type Backend interface {
	Put(name string, data []byte) error
	Get(name string) ([]byte, error)
	Delete(name string) error
	List(prefix string) ([]string, error)
}

// CopyBackend streams every object matching prefix from src to dst,
// the generalized counterpart of memcp's MoveDatabase helper in
// storage/persistence.go.
func CopyBackend(src, dst Backend, prefix string) error {
	names, err := src.List(prefix)
	if err != nil {
		return err
	}
	for _, name := range names {
		data, err := src.Get(name)
		if err != nil {
			return err
		}
		if err := dst.Put(name, data); err != nil {
			return err
		}
	}
	return nil
}

// readAllClose drains and closes an io.ReadCloser, used by backends
// whose underlying client hands back a stream rather than a []byte.
func readAllClose(rc io.ReadCloser) ([]byte, error) {
	defer rc.Close()
	return io.ReadAll(rc)
}

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

package objectstore

import (
	"os"
	"path/filepath"
	"strings"
)

// FilesystemBackend stores each object as a file under Dir, the default
// backend used by <data_dir>/segments Adapted from the
// memcp's FileStorage (storage/persistence-files.go): same
// create-parent-dirs-on-write shape, simplified since segments are
// immutable and need no ".old" rescue-copy behavior.
type FilesystemBackend struct {
	Dir string
}

func NewFilesystemBackend(dir string) *FilesystemBackend {
	return &FilesystemBackend{Dir: dir}
}

func (b *FilesystemBackend) path(name string) string {
	return filepath.Join(b.Dir, filepath.FromSlash(name))
}

func (b *FilesystemBackend) Put(name string, data []byte) error {
	p := b.path(name)
	if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0640)
}

func (b *FilesystemBackend) Get(name string) ([]byte, error) {
	return os.ReadFile(b.path(name))
}

func (b *FilesystemBackend) Delete(name string) error {
	return os.Remove(b.path(name))
}

func (b *FilesystemBackend) List(prefix string) ([]string, error) {
	var names []string
	root := b.Dir
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, prefix) {
			names = append(names, rel)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	return names, err
}

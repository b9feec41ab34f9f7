//go:build ceph

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
	"path"
	"sync"

	"github.com/ceph/go-ceph/rados"
)

// CephConfig names the connection parameters for a Ceph RADOS pool,
// adapted from memcp's CephFactory (storage/persistence-ceph.go).
type CephConfig struct {
	ClusterName string
	UserName    string
	ConfFile    string
	Pool        string
	Prefix      string
}

// CephBackend stores objects as RADOS objects under Config.Prefix,
// connecting lazily on first use.
type CephBackend struct {
	cfg CephConfig

	mu     sync.Mutex
	conn   *rados.Conn
	ioctx  *rados.IOContext
	opened bool
}

func NewCephBackend(cfg CephConfig) Backend {
	return &CephBackend{cfg: cfg}
}

func (b *CephBackend) ensureOpen() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.opened {
		return nil
	}
	conn, err := rados.NewConnWithClusterAndUser(b.cfg.ClusterName, b.cfg.UserName)
	if err != nil {
		return err
	}
	if b.cfg.ConfFile != "" {
		if err := conn.ReadConfigFile(b.cfg.ConfFile); err != nil {
			return err
		}
	} else {
		_ = conn.ReadDefaultConfigFile()
	}
	if err := conn.Connect(); err != nil {
		return err
	}
	ioctx, err := conn.OpenIOContext(b.cfg.Pool)
	if err != nil {
		conn.Shutdown()
		return err
	}
	b.conn, b.ioctx, b.opened = conn, ioctx, true
	return nil
}

func (b *CephBackend) obj(name string) string {
	return path.Join(b.cfg.Prefix, name)
}

func (b *CephBackend) Put(name string, data []byte) error {
	if err := b.ensureOpen(); err != nil {
		return err
	}
	return b.ioctx.WriteFull(b.obj(name), data)
}

func (b *CephBackend) Get(name string) ([]byte, error) {
	if err := b.ensureOpen(); err != nil {
		return nil, err
	}
	obj := b.obj(name)
	stat, err := b.ioctx.Stat(obj)
	if err != nil {
		return nil, err
	}
	data := make([]byte, stat.Size)
	n, err := b.ioctx.Read(obj, data, 0)
	if err != nil {
		return nil, err
	}
	return data[:n], nil
}

func (b *CephBackend) Delete(name string) error {
	if err := b.ensureOpen(); err != nil {
		return err
	}
	return b.ioctx.Delete(b.obj(name))
}

func (b *CephBackend) List(prefix string) ([]string, error) {
	if err := b.ensureOpen(); err != nil {
		return nil, err
	}
	iter, err := b.ioctx.Iter()
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	full := b.obj(prefix)
	var names []string
	for iter.Next() {
		name := iter.Value()
		if len(name) >= len(full) && name[:len(full)] == full {
			names = append(names, name)
		}
	}
	return names, iter.Err()
}

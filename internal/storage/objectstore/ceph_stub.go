//go:build !ceph

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

// CephConfig names the connection parameters for a Ceph RADOS pool.
// Only meaningful when built with -tags=ceph; see ceph.go.
type CephConfig struct {
	ClusterName string
	UserName    string
	ConfFile    string
	Pool        string
	Prefix      string
}

// NewCephBackend panics unless built with -tags=ceph, matching the
// memcp's CephFactory stub (storage/persistence-ceph-stub.go).
func NewCephBackend(cfg CephConfig) Backend {
	panic("objectstore: ceph support not compiled in; build with -tags=ceph")
}

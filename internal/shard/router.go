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

// Package shard implements the shard-per-core execution substrate: a
// fixed pool of single-threaded workers, each owning a disjoint slice
// of the key space, reached only through a per-shard
// message bus.
package shard

import (
	"hash/fnv"

	"github.com/launix-de/lumadb/internal/ir"
)

// Router maps a routing key to a shard index in [0,N). N is fixed at
// construction; replacing the hash or changing N changes the entire
// placement so both are immutable after NewRouter.
type Router struct {
	n uint64
}

func NewRouter(n int) *Router {
	if n <= 0 {
		panic("shard: N must be positive")
	}
	return &Router{n: uint64(n)}
}

func (r *Router) N() int { return int(r.n) }

// Route hashes key with FNV-1a (a 64-bit non-cryptographic hash) and
// reduces mod N. The same key always maps to the same shard for a fixed
// N.
func (r *Router) Route(key ir.Key) int {
	h := fnv.New64a()
	h.Write(key)
	return int(h.Sum64() % r.n)
}

// AllShards returns every shard index [0,N), used for range/scatter
// queries since partitioning is by hash, not by range.
func (r *Router) AllShards() []int {
	all := make([]int, r.n)
	for i := range all {
		all[i] = i
	}
	return all
}

package storage

import (
	"hash/maphash"

	"github.com/launix-de/lumadb/internal/ir"
)

var valueHashSeed = maphash.MakeSeed()

// hashValue hashes a Value for use in an internal distinct-count set or
// label-index bucket key. Panics propagate from ir.Value.Hash for
// List/Map/Set precondition; callers here only ever
// hash scalar column values, which never violate it.
func hashValue(v ir.Value) uint64 { return v.Hash(valueHashSeed) }

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
	"sort"
	"time"
)

type cacheItem struct {
	id         uint64
	segment    *Segment
	size       int64
	lastUsed   time.Time
}

// BlockCache holds on-disk segments in memory up to a byte budget,
// evicting least-recently-used entries when over budget. A shard's
// worker goroutine is the only caller, "a block
// cache" owned exclusively by the worker thread — so, unlike the
// memcp's CacheManager, this needs no internal goroutine or channel
// serialization of its own.
type BlockCache struct {
	budget  int64
	current int64
	items   map[uint64]*cacheItem
}

// NewBlockCache creates a cache with the given byte budget.
func NewBlockCache(budget int64) *BlockCache {
	return &BlockCache{budget: budget, items: make(map[uint64]*cacheItem)}
}

// Get returns the cached segment for id, marking it recently used.
func (c *BlockCache) Get(id uint64) (*Segment, bool) {
	item, ok := c.items[id]
	if !ok {
		return nil, false
	}
	item.lastUsed = time.Now()
	return item.segment, true
}

// Put inserts or replaces the cached segment for id, estimating its
// footprint as sizeBytes (the caller knows the segment's serialized
// size; this cache does not attempt to compute it).
func (c *BlockCache) Put(id uint64, seg *Segment, sizeBytes int64) {
	if existing, ok := c.items[id]; ok {
		c.current -= existing.size
	}
	c.items[id] = &cacheItem{id: id, segment: seg, size: sizeBytes, lastUsed: time.Now()}
	c.current += sizeBytes
	if c.current > c.budget {
		c.evict()
	}
}

// Evict removes id from the cache unconditionally (e.g. when the
// segment is superseded by a compaction).
func (c *BlockCache) Evict(id uint64) {
	if item, ok := c.items[id]; ok {
		c.current -= item.size
		delete(c.items, id)
	}
}

func (c *BlockCache) evict() {
	target := c.budget * 75 / 100
	items := make([]*cacheItem, 0, len(c.items))
	for _, it := range c.items {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].lastUsed.Before(items[j].lastUsed) })
	for _, it := range items {
		if c.current <= target {
			break
		}
		c.current -= it.size
		delete(c.items, it.id)
	}
}

// Len reports the number of cached segments.
func (c *BlockCache) Len() int { return len(c.items) }

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

package shard

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/launix-de/lumadb/internal/ir"
	"github.com/launix-de/lumadb/internal/lumaerr"
	"github.com/launix-de/lumadb/internal/storage/objectstore"
)

// Coordinator owns the router and one Bus/Worker pair per shard, and is
// the only thing protocol handlers and the executor ever talk to — they
// never see a Bus or Worker directly. Grounded on the
// memcp's top-level table dispatch in storage/table.go, which fans a
// statement out across a fixed set of storageShard chains the same way
// this fans a message out across buses.
type Coordinator struct {
	router  *Router
	buses   []*Bus
	workers []*Worker
	log     *logrus.Logger
}

// Config configures a Coordinator's N shards uniformly; every shard gets
// its own WAL file under DataDir/shard-<i>.wal and its own slice of the
// cache budget.
type Config struct {
	Shards       int
	DataDir      string
	Backend      objectstore.Backend
	CacheBudget  int64
	MemtableRows int
	ColTypes     map[string]string
	TimeColumn   string
	Logger       *logrus.Logger
	Executor     Executor
}

// NewCoordinator builds the router and every shard's Worker (replaying
// its WAL) but does not start any worker goroutine; call Start for that.
func NewCoordinator(cfg Config) (*Coordinator, error) {
	if cfg.Shards <= 0 {
		cfg.Shards = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	c := &Coordinator{
		router: NewRouter(cfg.Shards),
		log:    logger,
	}
	for i := 0; i < cfg.Shards; i++ {
		bus := NewBus()
		worker, err := NewWorker(WorkerConfig{
			ID:           i,
			Bus:          bus,
			Executor:     cfg.Executor,
			WALPath:      filepath.Join(cfg.DataDir, fmt.Sprintf("shard-%d.wal", i)),
			Backend:      cfg.Backend,
			CacheBudget:  cfg.CacheBudget,
			MemtableRows: cfg.MemtableRows,
			ColTypes:     cfg.ColTypes,
			TimeColumn:   cfg.TimeColumn,
			DataDir:      cfg.DataDir,
			Logger:       logger,
		})
		if err != nil {
			return nil, fmt.Errorf("shard %d: %w", i, err)
		}
		c.buses = append(c.buses, bus)
		c.workers = append(c.workers, worker)
	}
	return c, nil
}

// Start launches every shard's worker goroutine. Call once, after
// NewCoordinator and before serving any protocol traffic.
func (c *Coordinator) Start() {
	for _, w := range c.workers {
		go w.Run()
	}
}

// Shutdown closes every bus, waits on each worker's Done channel for
// its Run loop to exit, then closes its WAL. Workers exit as soon
// as their bus reports closed-and-drained, so this
// returns only once every in-flight message has been processed.
func (c *Coordinator) Shutdown() error {
	for _, bus := range c.buses {
		bus.Close()
	}
	for _, w := range c.workers {
		<-w.Done()
	}
	for _, w := range c.workers {
		if err := w.Close(); err != nil {
			return err
		}
	}
	return nil
}

// N reports the shard count.
func (c *Coordinator) N() int { return c.router.N() }

// Put routes key to its shard and enqueues a write. Fire-and-forget,
// matching the one-way message kind for Put/Delete.
func (c *Coordinator) Put(key ir.Key, value ir.Value) {
	i := c.router.Route(key)
	c.buses[i].Producer().Send(NewPut(key, value))
}

// Delete routes key to its shard and enqueues a tombstone write.
func (c *Coordinator) Delete(key ir.Key) {
	i := c.router.Route(key)
	c.buses[i].Producer().Send(NewDelete(key))
}

// Get routes key to its shard, blocks for the reply, and returns it.
func (c *Coordinator) Get(key ir.Key) (ir.Value, bool, error) {
	i := c.router.Route(key)
	reply := make(GetReply, 1)
	c.buses[i].Producer().Send(NewGet(key, reply))
	res, ok := <-reply
	if !ok {
		return ir.Value{}, false, lumaerr.Internal("shard closed its bus before answering Get")
	}
	return res.Value, res.Found, res.Err
}

// Query runs plan against the single shard that owns key (a point query
// or a query already scoped to one partition).
func (c *Coordinator) Query(key ir.Key, plan ir.QueryPlan) (*ir.Batch, error) {
	i := c.router.Route(key)
	return c.queryShard(i, plan)
}

func (c *Coordinator) queryShard(i int, plan ir.QueryPlan) (*ir.Batch, error) {
	reply := make(QueryReply, 1)
	c.buses[i].Producer().Send(NewQuery(plan, reply))
	res, ok := <-reply
	if !ok {
		return nil, lumaerr.Internal("shard closed its bus before answering Query")
	}
	return res.Batch, res.Err
}

// BroadcastQuery fans plan out to every shard concurrently and merges
// the results column-wise, scatter-gather. Since
// partitioning is by hash rather than range, any query that isn't a
// single-key point lookup must visit every shard. If any shard errors,
// the whole call fails — a scatter-gather query has no partial-success
// result, since the caller has no way to know which rows it's missing
//.
func (c *Coordinator) BroadcastQuery(plan ir.QueryPlan) (*ir.Batch, error) {
	shards := c.router.AllShards()
	type result struct {
		batch *ir.Batch
		err   error
	}
	results := make([]result, len(shards))

	var wg sync.WaitGroup
	for _, i := range shards {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := c.queryShard(i, plan)
			results[i] = result{batch: b, err: err}
		}(i)
	}
	wg.Wait()

	var merged *ir.Batch
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		if r.batch == nil {
			continue
		}
		if merged == nil {
			merged = ir.NewBatch(r.batch.Columns)
		}
		merged.Concat(r.batch)
	}
	if merged == nil {
		merged = ir.NewBatch(nil)
	}
	return merged, nil
}

// ShardSegments exposes shard i's current in-memory state for
// diagnostics (the admin push feed's /debug/shards view). Not used on
// any hot path.
func (c *Coordinator) ShardSegments(i int) ShardState {
	w := c.workers[i]
	return ShardState{Memtable: w.mem, Segments: w.sealed}
}

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
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/launix-de/lumadb/internal/ir"
	"github.com/launix-de/lumadb/internal/lumaerr"
	"github.com/launix-de/lumadb/internal/storage"
	"github.com/launix-de/lumadb/internal/storage/objectstore"
)

// Executor evaluates a query plan against one shard's visible state
// (its memtable plus its sealed in-memory segments). The shard
// package depends only on this narrow interface, not on the executor
// package itself, to avoid an import cycle (executor depends on shard
// to fan queries out across the coordinator).
type Executor interface {
	ExecuteOnShard(plan ir.QueryPlan, seg ShardState) (*ir.Batch, error)
}

// ShardState is the read-only view of a shard's data an Executor needs:
// the unsealed memtable plus every sealed segment, in sealing order
// (oldest first).
type ShardState struct {
	Memtable *storage.Memtable
	Segments []*storage.Segment
}

// Worker is one shard's single-threaded owner of its memtable, WAL,
// sealed segments, block cache and indices. Every
// mutation happens on this goroutine; nothing outside Run ever touches
// w.mem, w.wal, w.sealed or w.cache, so none of them need a mutex.
type Worker struct {
	ID     int
	bus    *Bus
	log    *logrus.Entry
	exec   Executor
	done   chan struct{}

	mem     *storage.Memtable
	wal     *storage.WAL
	sealed  []*storage.Segment
	cache   *storage.BlockCache
	backend objectstore.Backend

	colTypes map[string]string
	timeCol  string

	nextSegmentID uint64
	nextLSN       uint64
	dataDir       string
}

// WorkerConfig collects a worker's storage dependencies, built once by
// the coordinator at startup.
type WorkerConfig struct {
	ID             int
	Bus            *Bus
	Executor       Executor
	WALPath        string
	Backend        objectstore.Backend
	CacheBudget    int64
	MemtableRows   int
	ColTypes       map[string]string
	TimeColumn     string
	DataDir        string
	Logger         *logrus.Logger
}

// NewWorker opens the shard's WAL (replaying any existing records) and
// returns a worker ready to Run.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	wal, err := storage.OpenWAL(cfg.WALPath)
	if err != nil {
		return nil, lumaerr.Io("opening shard WAL", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	w := &Worker{
		ID:       cfg.ID,
		bus:      cfg.Bus,
		log:      logger.WithField("shard", cfg.ID),
		exec:     cfg.Executor,
		done:     make(chan struct{}),
		mem:      storage.NewMemtable(cfg.MemtableRows),
		wal:      wal,
		cache:    storage.NewBlockCache(cfg.CacheBudget),
		backend:  cfg.Backend,
		colTypes: cfg.ColTypes,
		timeCol:  cfg.TimeColumn,
		dataDir:  cfg.DataDir,
	}

	records, err := storage.RecoverWAL(cfg.WALPath)
	if err != nil {
		return nil, lumaerr.Io("recovering shard WAL", err)
	}
	for _, rec := range records {
		if rec.Kind != storage.WALInsertSegment {
			continue
		}
		pending, err := storage.DecodeInsertSegment(rec.Body)
		if err != nil {
			w.log.WithError(err).Warn("skipping corrupt WAL record during recovery")
			continue
		}
		seg := storage.BuildSegmentFromPending(pending)
		w.sealed = append(w.sealed, seg)
		if seg.ID >= w.nextSegmentID {
			w.nextSegmentID = seg.ID + 1
		}
	}
	w.log.WithField("segments", len(w.sealed)).Info("shard recovered from WAL")
	return w, nil
}

// Run pins the worker to its shard id's core (best-effort) and
// processes messages serially until the bus is closed: receive one
// message, process it fully (serially), loop.
func (w *Worker) Run() {
	defer close(w.done)
	pinToCore(w.ID)
	for {
		msg, ok := w.bus.Receive()
		if !ok {
			return
		}
		w.process(msg)
	}
}

// Done closes once Run has returned, letting Coordinator.Shutdown wait
// for in-flight messages to finish processing before closing the WAL.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) process(msg ShardMessage) {
	switch msg.Kind {
	case MsgPut:
		w.handlePut(msg.Key, msg.Value)
	case MsgDelete:
		w.handlePut(msg.Key, ir.Null())
	case MsgGet:
		w.handleGet(msg.Key, msg.GetReply)
	case MsgQuery:
		w.handleQuery(msg.Plan, msg.QueryReply)
	}
}

func (w *Worker) handlePut(key ir.Key, value ir.Value) {
	lsn := atomic.AddUint64(&w.nextLSN, 1)
	w.mem.Append(storage.Row{Key: key, Value: value, LSN: lsn})
	if w.mem.ReadyToSeal() {
		if err := w.seal(); err != nil {
			w.log.WithError(err).Error("failed to seal memtable")
		}
	}
}

// seal converts the memtable into a segment, writing it to the WAL
// before it becomes visible in w.sealed, shard
// lifecycle rule ("written to WAL first, then placed in-memory").
func (w *Worker) seal() error {
	colOrder, colData := w.mem.Seal()
	id := w.nextSegmentID
	w.nextSegmentID++

	pending := &storage.PendingSegment{
		ID:       id,
		TimeCol:  w.timeCol,
		ColOrder: colOrder,
		ColTypes: w.colTypes,
		ColData:  colData,
	}
	body, err := storage.EncodeInsertSegment(pending)
	if err != nil {
		return err
	}
	if err := w.wal.Append(body); err != nil {
		return lumaerr.Io("appending segment to WAL", err)
	}

	seg := storage.BuildSegmentFromPending(pending)
	w.sealed = append(w.sealed, seg)
	w.cache.Put(seg.ID, seg, int64(seg.RowCount)*64) // coarse size estimate, refined once persisted
	return nil
}

// handleGet searches the memtable newest-first, falling back to sealed
// segments newest-first and their key column
func (w *Worker) handleGet(key ir.Key, reply GetReply) {
	defer close(reply)
	if v, ok := w.mem.Get(key); ok {
		reply <- GetResult{Value: v, Found: true}
		return
	}
	target := key.String()
	for i := len(w.sealed) - 1; i >= 0; i-- {
		seg := w.sealed[i]
		keyCol, ok := seg.Column(storage.KeyColumn)
		if !ok {
			continue
		}
		for row := uint(0); row < seg.RowCount; row++ {
			if string(keyCol.Storage.GetValue(row).Bytes()) == target {
				if v, ok2 := seg.Column("value"); ok2 {
					reply <- GetResult{Value: v.Storage.GetValue(row), Found: true}
					return
				}
				reply <- GetResult{Value: ir.Null(), Found: true}
				return
			}
		}
	}
	reply <- GetResult{Found: false}
}

func (w *Worker) handleQuery(plan ir.QueryPlan, reply QueryReply) {
	defer close(reply)
	if w.exec == nil {
		reply <- QueryResult{Err: lumaerr.Internal("shard worker has no executor wired")}
		return
	}
	batch, err := w.exec.ExecuteOnShard(plan, ShardState{Memtable: w.mem, Segments: w.sealed})
	reply <- QueryResult{Batch: batch, Err: err}
}

// Close flushes and closes the WAL. Called only after the bus has been
// closed and Run has returned, since the worker goroutine is the sole
// writer to w.wal.
func (w *Worker) Close() error {
	return w.wal.Close()
}

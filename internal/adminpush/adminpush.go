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

// Package adminpush serves the gateway's live diagnostics: a plain-JSON
// snapshot at /debug/shards and a websocket feed at /debug/push that
// repeats the same snapshot on an interval. Grounded on memcp's
// scm/network.go, whose HttpServer.ServeHTTP builds a plain
// http.Handler and whose "websocket" callback upgrades a request with
// gorilla/websocket, spawns a read-loop goroutine, and returns a
// mutex-guarded send function — generalized here from a Scheme callback
// pair into one fixed push loop, since this gateway has no embedded
// scripting layer for a caller to drive the feed with.
package adminpush

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/launix-de/lumadb/internal/shard"
)

// ShardSnapshot is one shard's diagnostic summary.
type ShardSnapshot struct {
	Shard          int    `json:"shard"`
	MemtableRows   int    `json:"memtable_rows"`
	SealedSegments int    `json:"sealed_segments"`
	SegmentRows    uint64 `json:"segment_rows"`
}

func snapshot(coord *shard.Coordinator) []ShardSnapshot {
	out := make([]ShardSnapshot, coord.N())
	for i := range out {
		state := coord.ShardSegments(i)
		var segRows uint64
		for _, seg := range state.Segments {
			segRows += uint64(seg.RowCount)
		}
		out[i] = ShardSnapshot{
			Shard:          i,
			MemtableRows:   state.Memtable.Len(),
			SealedSegments: len(state.Segments),
			SegmentRows:    segRows,
		}
	}
	return out
}

// ShardsHandler answers /debug/shards with the current snapshot,
// one-shot, as a plain JSON array.
func ShardsHandler(coord *shard.Coordinator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snapshot(coord))
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// pushInterval is how often a connected websocket client receives a
// fresh snapshot.
const pushInterval = 2 * time.Second

// Upgrader answers /debug/push by upgrading to a websocket and pushing
// a JSON snapshot every pushInterval until the client disconnects, the
// same read-loop/send-mutex split memcp's "websocket" callback
// uses, minus the Scheme callback indirection.
func Upgrader(coord *shard.Coordinator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		var sendMu sync.Mutex
		ticker := time.NewTicker(pushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-closed:
				return
			case <-ticker.C:
				body, err := json.Marshal(snapshot(coord))
				if err != nil {
					continue
				}
				sendMu.Lock()
				err = ws.WriteMessage(websocket.TextMessage, body)
				sendMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	})
}

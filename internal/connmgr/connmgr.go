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

// Package connmgr implements the gateway's connection manager: a
// per-protocol semaphore sized to its configured max_connections, plus
// the generic accept loop every net.Listener-based protocol (Postgres,
// MongoDB, Cassandra, Redis) runs the same way. MySQL, whose wire
// protocol is driven by third_party go-mysqlstack's own listener, uses
// the same Semaphore directly from its session lifecycle hooks instead
// of this package's Listen helper. Grounded on memcp's
// scm/network.go HTTPServe accept/goroutine-per-connection shape,
// generalized with a bounded permit pool memcp's HTTP listener
// never needed (net/http already caps concurrency internally).
package connmgr

import (
	"errors"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/launix-de/lumadb/internal/metrics"
)

// ErrClosed reports a closed semaphore. TryAcquire does not return it:
// once Close has run, TryAcquire reports (nil, false).
var ErrClosed = errors.New("connmgr: semaphore closed")

// Semaphore bounds the number of concurrently active connections for
// one protocol tag.
type Semaphore struct {
	protocol string
	permits  chan struct{}
	closed   chan struct{}
	metrics  *metrics.Metrics
}

func NewSemaphore(protocol string, max int, m *metrics.Metrics) *Semaphore {
	if max <= 0 {
		max = 1
	}
	return &Semaphore{
		protocol: protocol,
		permits:  make(chan struct{}, max),
		closed:   make(chan struct{}),
		metrics:  m,
	}
}

// TryAcquire returns a release function and true on success, or
// (nil, false) when the semaphore is full or closed.
func (s *Semaphore) TryAcquire() (release func(), ok bool) {
	select {
	case <-s.closed:
		return nil, false
	default:
	}
	select {
	case s.permits <- struct{}{}:
		s.metrics.ConnectionOpened(s.protocol)
		var once bool
		return func() {
			if once {
				return
			}
			once = true
			<-s.permits
			s.metrics.ConnectionClosed(s.protocol)
		}, true
	default:
		return nil, false
	}
}

// Close marks the semaphore closed; outstanding permits are unaffected,
// but no further TryAcquire succeeds.
func (s *Semaphore) Close() { close(s.closed) }

// Listen runs the generic accept loop shared by every net.Listener-
// based protocol: accept, try to acquire a permit (rejecting the
// connection outright if the semaphore is full or closed, then hand
// the connection to handle on its own goroutine.
func Listen(lis net.Listener, sem *Semaphore, log *logrus.Logger, handle func(net.Conn)) {
	for {
		nc, err := lis.Accept()
		if err != nil {
			return
		}
		release, ok := sem.TryAcquire()
		if !ok {
			log.WithField("component", "connmgr").WithField("protocol", sem.protocol).Warn("connection rejected: at capacity")
			nc.Close()
			continue
		}
		go func() {
			defer release()
			defer nc.Close()
			handle(nc)
		}()
	}
}

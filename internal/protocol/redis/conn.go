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

package redis

import (
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/launix-de/lumadb/internal/executor"
	"github.com/launix-de/lumadb/internal/ir"
	"github.com/launix-de/lumadb/internal/metrics"
	"github.com/launix-de/lumadb/internal/protocol/common"
)

const table = "redis"

// Server owns the shared Engine, pub/sub Hub and metrics every accepted
// connection uses.
type Server struct {
	Engine  *executor.Engine
	Hub     *Hub
	Metrics *metrics.Metrics
	Log     *logrus.Logger
}

// Serve runs one connection's RESP command loop to completion, per
// the Ready -> Closed state machine (RESP has no
// Authenticating/Handshake phase and no cursors, so those states are
// skipped entirely).
func (s *Server) Serve(nc net.Conn) {
	defer nc.Close()
	c := common.NewConn(nc, 0)

	var writeMu sync.Mutex
	write := func(b []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_, err := c.Write(b)
		return err
	}

	for {
		args, err := readCommand(c)
		if err != nil {
			return
		}
		if len(args) == 0 {
			continue
		}
		cmd := strings.ToUpper(args[0])

		start := time.Now()
		reply, subEnter := s.dispatch(cmd, args, write)
		s.Metrics.ObserveQuery("redis", cmd, time.Since(start).Seconds())
		if reply != nil && write(reply) != nil {
			return
		}
		if subEnter != nil {
			s.runSubscriber(nc, subEnter, write)
		}
		if cmd == "QUIT" {
			return
		}
	}
}

func (s *Server) dispatch(cmd string, args []string, write func([]byte) error) (reply []byte, enterSub *subscriber) {
	switch cmd {
	case "PING":
		if len(args) > 1 {
			return bulkString(args[1], true), nil
		}
		return simpleString("PONG"), nil
	case "ECHO":
		if len(args) != 2 {
			return errorReply("ERR wrong number of arguments for 'echo' command"), nil
		}
		return bulkString(args[1], true), nil
	case "SELECT", "HELLO":
		return simpleString("OK"), nil
	case "QUIT":
		return simpleString("OK"), nil
	case "GET":
		if len(args) != 2 {
			return errorReply("ERR wrong number of arguments for 'get' command"), nil
		}
		return s.get(args[1]), nil
	case "SET":
		if len(args) < 3 {
			return errorReply("ERR wrong number of arguments for 'set' command"), nil
		}
		return s.set(args[1], args[2]), nil
	case "DEL":
		if len(args) < 2 {
			return errorReply("ERR wrong number of arguments for 'del' command"), nil
		}
		return s.del(args[1:]), nil
	case "EXISTS":
		if len(args) < 2 {
			return errorReply("ERR wrong number of arguments for 'exists' command"), nil
		}
		return s.exists(args[1:]), nil
	case "SUBSCRIBE", "PSUBSCRIBE":
		sub := &subscriber{ch: make(chan pubsubMessage, 64)}
		for _, ch := range args[1:] {
			s.Hub.subscribe(ch, sub)
		}
		for i, ch := range args[1:] {
			write(subscribeAck(cmd, ch, i+1))
		}
		return nil, sub
	case "PUBLISH":
		if len(args) != 3 {
			return errorReply("ERR wrong number of arguments for 'publish' command"), nil
		}
		return integerReply(s.Hub.publish(args[1], []byte(args[2]))), nil
	default:
		return errorReply("ERR unknown command '" + args[0] + "'"), nil
	}
}

func (s *Server) get(key string) []byte {
	plan := ir.QueryPlan{ir.NewScan(table, []string{"value"}, ir.Call("=", ir.Col("_key"), ir.Lit(ir.NewText(key))))}
	batch, err := s.Engine.Exec(plan)
	if err != nil || batch.Rows() == 0 {
		return bulkString("", false)
	}
	return bulkString(batch.Data["value"][0].Text(), true)
}

func (s *Server) set(key, value string) []byte {
	plan := ir.QueryPlan{ir.NewDML(ir.DML{
		Kind:    ir.DMLInsert,
		Table:   table,
		Columns: []string{"_key", "value"},
		Values:  []ir.Value{ir.NewText(key), ir.NewText(value)},
	})}
	if _, err := s.Engine.Exec(plan); err != nil {
		return errorReply("ERR " + err.Error())
	}
	return simpleString("OK")
}

func (s *Server) del(keys []string) []byte {
	n := 0
	for _, k := range keys {
		plan := ir.QueryPlan{ir.NewDML(ir.DML{Kind: ir.DMLDelete, Table: table, Key: ir.KeyFromString(k)})}
		if _, err := s.Engine.Exec(plan); err == nil {
			n++
		}
	}
	return integerReply(n)
}

func (s *Server) exists(keys []string) []byte {
	n := 0
	for _, k := range keys {
		plan := ir.QueryPlan{ir.NewScan(table, []string{"_key"}, ir.Call("=", ir.Col("_key"), ir.Lit(ir.NewText(k))))}
		if batch, err := s.Engine.Exec(plan); err == nil && batch.Rows() > 0 {
			n++
		}
	}
	return integerReply(n)
}

func subscribeAck(kind, channel string, count int) []byte {
	var buf []byte
	buf = append(buf, arrayHeader(3)...)
	buf = append(buf, bulkString(strings.ToLower(kind), true)...)
	buf = append(buf, bulkString(channel, true)...)
	buf = append(buf, integerReply(count)...)
	return buf
}

// runSubscriber pushes published messages to the client while it is
// subscribed. In this state only SUBSCRIBE/UNSUBSCRIBE/PSUBSCRIBE/
// PUNSUBSCRIBE/PING/QUIT are accepted; any other command is rejected
// without leaving subscriber state, matching real Redis's
// subscriber-context restriction.
func (s *Server) runSubscriber(nc net.Conn, sub *subscriber, write func([]byte) error) {
	subscribed := map[string]struct{}{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range sub.ch {
			var buf []byte
			buf = append(buf, arrayHeader(3)...)
			buf = append(buf, bulkString("message", true)...)
			buf = append(buf, bulkString(msg.channel, true)...)
			buf = append(buf, bulkString(string(msg.payload), true)...)
			if write(buf) != nil {
				return
			}
		}
	}()
	c := common.NewConn(nc, 0)
	for {
		args, err := readCommand(c)
		if err != nil {
			close(sub.ch)
			<-done
			return
		}
		if len(args) == 0 {
			continue
		}
		cmd := strings.ToUpper(args[0])
		switch cmd {
		case "SUBSCRIBE", "PSUBSCRIBE":
			for _, ch := range args[1:] {
				s.Hub.subscribe(ch, sub)
				subscribed[ch] = struct{}{}
			}
			for i, ch := range args[1:] {
				write(subscribeAck(cmd, ch, len(subscribed)-len(args[1:])+i+1))
			}
		case "UNSUBSCRIBE", "PUNSUBSCRIBE":
			targets := args[1:]
			if len(targets) == 0 {
				for ch := range subscribed {
					targets = append(targets, ch)
				}
			}
			for _, ch := range targets {
				s.Hub.unsubscribe(ch, sub)
				delete(subscribed, ch)
			}
			for i, ch := range targets {
				write(subscribeAck(cmd, ch, len(subscribed)-len(targets)+i+1))
			}
			if len(subscribed) == 0 {
				close(sub.ch)
				<-done
				return
			}
		case "PING":
			write(simpleString("PONG"))
		case "QUIT":
			write(simpleString("OK"))
			close(sub.ch)
			<-done
			return
		default:
			write(errorReply("ERR " + strconv.Quote(args[0]) + " is not allowed in subscriber context"))
		}
	}
}

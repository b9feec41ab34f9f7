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

import "sync"

// Hub fans PUBLISH out to every subscriber of a channel, independent of
// the shard/storage substrate: pub/sub is transient and never durable
//.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

type subscriber struct {
	ch chan pubsubMessage
}

type pubsubMessage struct {
	channel string
	pattern string // "" for a literal-channel delivery
	payload []byte
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*subscriber]struct{})}
}

func (h *Hub) subscribe(channel string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[channel]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[channel] = set
	}
	set[s] = struct{}{}
}

func (h *Hub) unsubscribe(channel string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[channel]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, channel)
		}
	}
}

// publish delivers payload to every subscriber of channel and returns
// the receiver count, matching RESP PUBLISH's integer reply.
func (h *Hub) publish(channel string, payload []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[channel]
	n := 0
	for s := range set {
		select {
		case s.ch <- pubsubMessage{channel: channel, payload: payload}:
			n++
		default:
			// slow subscriber: drop rather than block the publisher
		}
	}
	return n
}

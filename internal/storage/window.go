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

import "github.com/launix-de/lumadb/internal/ir"

// WindowKind names one of the three window flavours this gateway supports
type WindowKind uint8

const (
	WindowTumbling WindowKind = iota
	WindowSliding
	WindowSession
)

// WindowSpec configures a window assignment: Size/Slide are in the same
// units as the event-time values passed to Assign (typically unix
// micros); Gap is a session's inactivity gap in the same units.
type WindowSpec struct {
	Kind  WindowKind
	Size  int64
	Slide int64
	Gap   int64
}

// Window is one assigned window's half-open time range [Start, End).
type Window struct {
	Start, End int64
}

// Assign computes the window(s) event time t belongs to. Tumbling and
// Sliding are pure functions of t; Session additionally depends on
// prior state (the currently open session, if any), so callers drive
// it through a SessionAssigner instead.
func (s WindowSpec) Assign(t int64) []Window {
	switch s.Kind {
	case WindowTumbling:
		start := floorDiv(t, s.Size) * s.Size
		return []Window{{start, start + s.Size}}
	case WindowSliding:
		// every slide-aligned window whose [start,start+size) contains t
		var windows []Window
		firstStart := floorDiv(t-s.Size+s.Slide, s.Slide) * s.Slide
		for start := firstStart; start <= t; start += s.Slide {
			if t >= start && t < start+s.Size {
				windows = append(windows, Window{start, start + s.Size})
			}
		}
		return windows
	default:
		return []Window{{t, t + s.Gap}}
	}
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// SessionAssigner tracks open per-key sessions, merging a new event
// into the current window if it falls before the window's end (that
// is, within Gap of the session's latest event), or starting a new
// window otherwise.
type SessionAssigner struct {
	gap     int64
	current map[string]*Window
}

func NewSessionAssigner(gap int64) *SessionAssigner {
	return &SessionAssigner{gap: gap, current: make(map[string]*Window)}
}

// Assign extends or opens the session window for key at event time t,
// returning the resulting window.
func (s *SessionAssigner) Assign(key string, t int64) Window {
	if w, ok := s.current[key]; ok && t < w.End {
		if t+s.gap > w.End {
			w.End = t + s.gap
		}
		return *w
	}
	w := &Window{Start: t, End: t + s.gap}
	s.current[key] = w
	return *w
}

// Watermark advances monotonically as max(watermark, t) and answers
// whether an event at time t is too late to be assigned: events older
// than watermark - allowed_lateness are dropped.
type Watermark struct {
	current        int64
	allowedLateness int64
}

func NewWatermark(allowedLateness int64) *Watermark {
	return &Watermark{current: minInt64, allowedLateness: allowedLateness}
}

const minInt64 = -(int64(1) << 62)

// Advance folds in an observed event time.
func (w *Watermark) Advance(t int64) {
	if t > w.current {
		w.current = t
	}
}

// Current returns the current watermark value.
func (w *Watermark) Current() int64 { return w.current }

// IsLate reports whether an event at time t arrives after the allowed
// lateness window has already closed for it.
func (w *Watermark) IsLate(t int64) bool {
	return t < w.current-w.allowedLateness
}

// TimeOf extracts the event-time micros used for window assignment
// from a row's timestamp column value.
func TimeOf(v ir.Value) int64 {
	if v.IsNull() {
		return 0
	}
	return v.Time().UnixMicro()
}

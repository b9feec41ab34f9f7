//go:build linux

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
	"runtime"

	"golang.org/x/sys/unix"
)

// pinToCore locks the calling goroutine to its OS thread and asks the
// scheduler to run that thread only on core. Best-effort: an error from
// SchedSetaffinity is swallowed, no-op on platforms without affinity.
func pinToCore(core int) {
	runtime.LockOSThread()
	var set unix.CPUSet
	set.Zero()
	set.Set(core % runtime.NumCPU())
	_ = unix.SchedSetaffinity(0, &set)
}

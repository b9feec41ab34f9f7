//go:build !linux

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

import "runtime"

// pinToCore is a no-op on platforms without a CPU-affinity syscall,
// Still locks the OS thread so the goroutine at least
// keeps a stable thread identity, which is the portable part of "pin".
func pinToCore(core int) {
	runtime.LockOSThread()
}

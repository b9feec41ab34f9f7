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
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"sync"
)

// WALEntryKind tags the variant stored in a WAL record. InsertSegment is
// the only kind today; the tag byte leaves room to add more without
// breaking recovery of old logs.
type WALEntryKind uint8

const (
	WALInsertSegment WALEntryKind = iota
)

// WAL is an append-only, length-prefixed log: each record is a
// big-endian u32 length followed by that many body bytes, no file
// header, no checksum. A shard's worker goroutine is the sole writer;
// Append and Close both hold mu, so a Close cannot interleave with a
// record being written.
type WAL struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
}

// OpenWAL opens (creating if absent) the log file at path for appending.
func OpenWAL(path string) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, err
	}
	return &WAL{f: f, w: bufio.NewWriter(f)}, nil
}

// Append writes one length-prefixed record and flushes it to the OS,
// since a WAL record must be durable before the caller's in-memory
// state changes become visible.
func (l *WAL) Append(body []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := l.w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := l.w.Write(body); err != nil {
		return err
	}
	if err := l.w.Flush(); err != nil {
		return err
	}
	return l.f.Sync()
}

func (l *WAL) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.w.Flush(); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}

// WALRecord is one decoded log entry plus its kind tag.
type WALRecord struct {
	Kind WALEntryKind
	Body []byte
}

// RecoverWAL replays every well-formed record in the file at path.
// Per the WAL-robustness property: a truncated trailing record
// (fewer than 4 length bytes, or a body shorter than its declared
// length) is dropped silently, recovering every record before it; a
// corrupt non-terminal record is only detectable as a truncated/garbled
// length here, so recovery is best-effort by construction — the length
// prefix itself is the only integrity check this format has.
func RecoverWAL(path string) ([]WALRecord, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var records []WALRecord
	for {
		var lenBuf [4]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			break // short or no length prefix: stop, keep everything recovered so far
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		body := make([]byte, n)
		if _, err := io.ReadFull(r, body); err != nil {
			break // truncated body: stop, drop this trailing record
		}
		if len(body) == 0 {
			continue
		}
		records = append(records, WALRecord{Kind: WALEntryKind(body[0]), Body: body[1:]})
	}
	return records, nil
}

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
	"sort"
	"strings"
	"unicode"

	"github.com/launix-de/lumadb/internal/ir"
)

// TextIndex is an inverted index over tokenized text: token -> sorted
// row ids containing that token, text search support.
type TextIndex struct {
	postings map[string][]uint32
}

// BuildTextIndex tokenizes every row of a text column and inverts it.
func BuildTextIndex(values []ir.Value) *TextIndex {
	idx := &TextIndex{postings: make(map[string][]uint32)}
	for i, v := range values {
		if v.IsNull() {
			continue
		}
		seen := make(map[string]struct{})
		for _, tok := range tokenize(v.Text()) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			idx.postings[tok] = append(idx.postings[tok], uint32(i))
		}
	}
	return idx
}

// Search returns the row ids whose tokenized text contains every token
// in query (a simple AND of postings lists, ascending row id order).
func (t *TextIndex) Search(query string) []uint32 {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil
	}
	result := t.postings[tokens[0]]
	for _, tok := range tokens[1:] {
		result = intersectSorted(result, t.postings[tok])
		if len(result) == 0 {
			break
		}
	}
	out := make([]uint32, len(result))
	copy(out, result)
	return out
}

// tokenize lowercases and splits on anything that is not a letter or
// digit, dropping empty tokens. Good enough for word-boundary matching
// without pulling in a full-text analyzer library.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return fields
}

func intersectSorted(a, b []uint32) []uint32 {
	sort.Slice(a, func(i, j int) bool { return a[i] < a[j] })
	sort.Slice(b, func(i, j int) bool { return b[i] < b[j] })
	var out []uint32
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}

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
	"math"
	"math/rand"
	"sort"
)

// VectorMetric names the distance function a vector index searches
// under, mirroring ir.VectorMetric.
type VectorMetric uint8

const (
	MetricL2 VectorMetric = iota
	MetricCosine
	MetricDot
)

func distance(metric VectorMetric, a, b []float32) float32 {
	switch metric {
	case MetricCosine:
		var dot, na, nb float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
			na += float64(a[i]) * float64(a[i])
			nb += float64(b[i]) * float64(b[i])
		}
		if na == 0 || nb == 0 {
			return 1
		}
		return float32(1 - dot/(math.Sqrt(na)*math.Sqrt(nb)))
	case MetricDot:
		var dot float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
		}
		return float32(-dot)
	default: // MetricL2
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return float32(math.Sqrt(sum))
	}
}

// hnswNode is the flat-arena payload: vector + metadata,
// indexed by node id and kept separate from the per-layer adjacency.
type hnswNode struct {
	id  uint64
	vec []float32
}

// LayerIndex is one HNSW layer's adjacency: node -> neighbour ids.
type LayerIndex struct {
	graph map[uint64][]uint64
}

func newLayerIndex() *LayerIndex { return &LayerIndex{graph: make(map[uint64][]uint64)} }

// HNSW is a Hierarchical Navigable Small World approximate-nearest-
// neighbour index: {dimension, m, ef_construction,
// layers}. Insertion assigns a level by geometric decay, links
// neighbours on each layer top-down; search enters at the top layer and
// greedy-descends with a candidate/visited set bounded by ef_search.
type HNSW struct {
	Dimension     int
	M             int
	EfConstruction int
	Metric        VectorMetric

	layers    []*LayerIndex // layers[0] is the base (densest) layer
	nodes     map[uint64]*hnswNode
	entryNode uint64
	hasEntry  bool
	rnd       *rand.Rand
	levelMult float64
}

// NewHNSW constructs an empty index. m controls the per-node neighbour
// count (teacher convention: m on base layer, m/2 above), efConstruction
// the candidate list size used while inserting.
func NewHNSW(dimension, m, efConstruction int, metric VectorMetric) *HNSW {
	if m <= 0 {
		m = 16
	}
	if efConstruction <= 0 {
		efConstruction = 64
	}
	return &HNSW{
		Dimension:      dimension,
		M:              m,
		EfConstruction: efConstruction,
		Metric:         metric,
		nodes:          make(map[uint64]*hnswNode),
		rnd:            rand.New(rand.NewSource(1)), // deterministic: level assignment need not be cryptographic
		levelMult:      1 / math.Log(float64(m)),
	}
}

func (h *HNSW) randomLevel() int {
	level := int(math.Floor(-math.Log(h.rnd.Float64()) * h.levelMult))
	return level
}

// Add inserts a vector under id, assigning it a level and linking
// neighbours on every layer from the top down.
func (h *HNSW) Add(id uint64, vec []float32) {
	node := &hnswNode{id: id, vec: vec}
	h.nodes[id] = node
	level := h.randomLevel()
	for len(h.layers) <= level {
		h.layers = append(h.layers, newLayerIndex())
	}

	if !h.hasEntry {
		h.entryNode = id
		h.hasEntry = true
		for l := 0; l <= level; l++ {
			h.layers[l].graph[id] = nil
		}
		return
	}

	entry := h.entryNode
	topLayer := len(h.layers) - 1
	for l := topLayer; l > level; l-- {
		entry = h.greedyClosest(l, vec, entry)
	}
	for l := min(level, topLayer); l >= 0; l-- {
		candidates := h.searchLayer(l, vec, entry, h.EfConstruction)
		neighbours := selectNeighbours(candidates, h.neighbourCountForLayer(l))
		ids := make([]uint64, len(neighbours))
		for i, c := range neighbours {
			ids[i] = c.id
		}
		h.layers[l].graph[id] = ids
		for _, nb := range ids {
			h.layers[l].graph[nb] = appendBounded(h.layers[l].graph[nb], id, h.neighbourCountForLayer(l), h, vec)
		}
		if len(candidates) > 0 {
			entry = candidates[0].id
		}
	}
}

func (h *HNSW) neighbourCountForLayer(l int) int {
	if l == 0 {
		return h.M
	}
	return h.M / 2
}

type candidate struct {
	id   uint64
	dist float32
}

func (h *HNSW) greedyClosest(layer int, query []float32, start uint64) uint64 {
	current := start
	currentDist := distance(h.Metric, query, h.nodes[current].vec)
	for {
		improved := false
		for _, nb := range h.layers[layer].graph[current] {
			d := distance(h.Metric, query, h.nodes[nb].vec)
			if d < currentDist {
				current, currentDist, improved = nb, d, true
			}
		}
		if !improved {
			return current
		}
	}
}

// searchLayer explores layer starting at entry, keeping up to ef
// candidates, per the standard HNSW greedy-with-candidate-set search.
func (h *HNSW) searchLayer(layer int, query []float32, entry uint64, ef int) []candidate {
	visited := map[uint64]struct{}{entry: {}}
	entryDist := distance(h.Metric, query, h.nodes[entry].vec)
	candidates := []candidate{{entry, entryDist}}
	result := []candidate{{entry, entryDist}}

	for len(candidates) > 0 {
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })
		c := candidates[0]
		candidates = candidates[1:]

		sort.Slice(result, func(i, j int) bool { return result[i].dist < result[j].dist })
		if len(result) >= ef && c.dist > result[len(result)-1].dist {
			break
		}

		for _, nbID := range h.layers[layer].graph[c.id] {
			if _, seen := visited[nbID]; seen {
				continue
			}
			visited[nbID] = struct{}{}
			d := distance(h.Metric, query, h.nodes[nbID].vec)
			candidates = append(candidates, candidate{nbID, d})
			result = append(result, candidate{nbID, d})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].dist < result[j].dist })
	if len(result) > ef {
		result = result[:ef]
	}
	return result
}

func selectNeighbours(candidates []candidate, count int) []candidate {
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })
	if len(candidates) > count {
		candidates = candidates[:count]
	}
	return candidates
}

func appendBounded(existing []uint64, id uint64, max int, h *HNSW, vec []float32) []uint64 {
	for _, e := range existing {
		if e == id {
			return existing
		}
	}
	existing = append(existing, id)
	if len(existing) <= max {
		return existing
	}
	// trim to the max closest neighbours by distance to the owning node's vector
	cs := make([]candidate, len(existing))
	for i, e := range existing {
		cs[i] = candidate{e, distance(h.Metric, vec, h.nodes[e].vec)}
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].dist < cs[j].dist })
	out := make([]uint64, max)
	for i := 0; i < max; i++ {
		out[i] = cs[i].id
	}
	return out
}

// Search returns the k nearest neighbours to query, entering at the top
// layer and greedy-descending before a final bounded search on layer 0
// with candidate set size ef_search.
func (h *HNSW) Search(query []float32, k, efSearch int) []VectorHit {
	if !h.hasEntry {
		return nil
	}
	entry := h.entryNode
	for l := len(h.layers) - 1; l > 0; l-- {
		entry = h.greedyClosest(l, query, entry)
	}
	if efSearch < k {
		efSearch = k
	}
	candidates := h.searchLayer(0, query, entry, efSearch)
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	hits := make([]VectorHit, len(candidates))
	for i, c := range candidates {
		hits[i] = VectorHit{ID: c.id, Distance: c.dist}
	}
	return hits
}

// VectorHit is one result of a vector search: a node id and its distance
// to the query under the index's configured metric.
type VectorHit struct {
	ID       uint64
	Distance float32
}

// FlatIndex is the brute-force conformance baseline for HNSW: linear
// scan, exact nearest neighbours, no approximation.
type FlatIndex struct {
	Metric VectorMetric
	ids    []uint64
	vecs   [][]float32
}

func NewFlatIndex(metric VectorMetric) *FlatIndex {
	return &FlatIndex{Metric: metric}
}

func (f *FlatIndex) Add(id uint64, vec []float32) {
	f.ids = append(f.ids, id)
	f.vecs = append(f.vecs, vec)
}

func (f *FlatIndex) Search(query []float32, k int) []VectorHit {
	hits := make([]VectorHit, len(f.ids))
	for i := range f.ids {
		hits[i] = VectorHit{ID: f.ids[i], Distance: distance(f.Metric, query, f.vecs[i])}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

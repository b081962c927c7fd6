package database

import (
	"errors"
	"fmt"
	"sort"

	"github.com/coder/hnsw"
)

// HNSWIndex is a nearest-neighbour index over corpus records, keyed by record position.
// Recognition never uses it; it backs the corpus audit.
type HNSWIndex struct {
	graph   *hnsw.Graph[int]
	records []EmbeddingRecord
	dims    int
}

// NewHNSWIndex builds an index over records. Records without an embedding are skipped.
// Every other record must have the dimension of the first one; the graph cannot mix sizes.
func NewHNSWIndex(records []EmbeddingRecord) (*HNSWIndex, error) {
	g := hnsw.NewGraph[int]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.CosineDistance

	dims, first := 0, -1
	for i := range records {
		n := len(records[i].Embedding)
		if n == 0 {
			continue
		}
		if first < 0 {
			dims, first = n, i
		} else if n != dims {
			return nil, fmt.Errorf("record %d (%s) has %d dimensions, record %d has %d: corpus mixes embedding models",
				i, records[i].EmpID, n, first, dims)
		}
		g.Add(hnsw.MakeNode(i, records[i].Embedding))
	}
	return &HNSWIndex{graph: g, records: records, dims: dims}, nil
}

// Len returns the number of indexed records
func (h *HNSWIndex) Len() int {
	return h.graph.Len()
}

// Neighbor is a search hit
type Neighbor struct {
	Index    int
	Record   *EmbeddingRecord
	Distance float64
}

// Search finds the k nearest records to query, closest first.
func (h *HNSWIndex) Search(query []float32, k int) ([]Neighbor, error) {
	if h.graph.Len() == 0 {
		return nil, errors.New("index is empty")
	}
	if len(query) != h.dims {
		return nil, fmt.Errorf("query has %d dimensions, index has %d", len(query), h.dims)
	}

	nodes := h.graph.Search(query, k)
	out := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Neighbor{
			Index:    n.Key,
			Record:   &h.records[n.Key],
			Distance: CosineDistance(query, n.Value),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out, nil
}

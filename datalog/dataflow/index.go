package dataflow

import "github.com/lumendb/datalogx/datalog"

// Hit is one result of a nearest-neighbor probe against a VectorIndex:
// the matched row's identity key plus its distance from the query
// vector, ordered closest-first by the index implementation.
type Hit struct {
	Key      datalog.Value
	Distance float64
}

// VectorIndex is the boundary the dataflow generator's HnswScan operator
// evaluates against. The concrete HNSW/LSH/flat implementations live in
// the storage-facing index package; this package only needs the
// read-side query contract, kept narrow so the generator never imports
// index construction/maintenance concerns.
type VectorIndex interface {
	// Nearest returns up to k hits ordered by ascending distance from
	// query, optionally widening the candidate pool per efSearch (0
	// lets the implementation pick its own default).
	Nearest(query datalog.Value, k int, efSearch int) ([]Hit, error)
}

// IndexSet resolves an HnswScan's index name to the VectorIndex that
// backs it, mirroring how Catalog resolves a Scan's relation name to a
// schema.
type IndexSet interface {
	Index(name string) (VectorIndex, bool)
}

// MapIndexSet is the simplest IndexSet: a static name -> VectorIndex
// map, adequate for tests and for an Engine that registers indexes
// up front.
type MapIndexSet map[string]VectorIndex

func (m MapIndexSet) Index(name string) (VectorIndex, bool) {
	idx, ok := m[name]
	return idx, ok
}

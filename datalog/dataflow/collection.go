// Package dataflow is the code generator: it translates an optimized IR
// tree into an incremental-dataflow evaluation over the diff-type
// semiring the optimizer annotated each node with, drives recursive
// strata to a semi-naive fixed point, and surfaces cancellation/timeout
// and tuple-local runtime failures as structured errors, the way a
// query executor reports execution errors.
//
// There is no real worker mesh behind this generator -- one process,
// one goroutine per Eval call -- but the operator semantics (Scan, Map,
// Filter, Join, Antijoin, Distinct, Union, Aggregate, Compute, HnswScan,
// FlatMap/JoinFlatMap) and the semiring bookkeeping are exactly what a
// timely/differential-style runtime would need to drive, so swapping in
// a real multi-worker engine later only touches this package.
package dataflow

import (
	"fmt"
	"strings"

	"github.com/lumendb/datalogx/datalog"
	"github.com/lumendb/datalogx/datalog/semiring"
)

// Entry is one consolidated (tuple, diff) pair held in a Collection.
type Entry struct {
	Row  datalog.Tuple
	Diff semiring.Diff
}

// Collection is an in-memory incremental-dataflow collection: a
// consolidated multiset of tuples keyed by their diff semiring. It is
// the in-process stand-in for a differential-dataflow "arrangement".
// Entries whose diff becomes zero are compacted away
// immediately, so Len() always reports the number of currently-present
// distinct tuples.
//
// Tuples are bucketed by Tuple.Hash() with exact-equality resolution
// within a bucket, rather than keyed by a rendered string, because
// Value.String() collapses distinct vector values of the same length to
// the same "vec[N]" text -- only Hash()/Equal() are safe to consolidate
// on.
type Collection struct {
	sr      semiring.Type
	buckets map[uint64][]*Entry
	count   int
}

// NewCollection returns an empty Collection under the given semiring.
func NewCollection(sr semiring.Type) *Collection {
	if sr == semiring.Unknown {
		sr = semiring.Boolean
	}
	return &Collection{sr: sr, buckets: make(map[uint64][]*Entry)}
}

// Semiring reports the diff type this collection's entries live in.
func (c *Collection) Semiring() semiring.Type { return c.sr }

// Add combines diff into whatever is already recorded for row, removing
// the entry entirely once its accumulated diff reaches the semiring's
// zero.
func (c *Collection) Add(row datalog.Tuple, diff semiring.Diff) {
	h := row.Hash()
	bucket := c.buckets[h]
	for _, e := range bucket {
		if e.Row.Equal(row) {
			e.Diff = e.Diff.Add(diff)
			if e.Diff.IsZero() {
				c.removeFromBucket(h, e)
				c.count--
			}
			return
		}
	}
	if !diff.IsZero() {
		c.buckets[h] = append(bucket, &Entry{Row: row, Diff: diff})
		c.count++
	}
}

func (c *Collection) removeFromBucket(h uint64, target *Entry) {
	bucket := c.buckets[h]
	for i, e := range bucket {
		if e == target {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(c.buckets, h)
	} else {
		c.buckets[h] = bucket
	}
}

// Len reports the number of distinct present tuples.
func (c *Collection) Len() int { return c.count }

// Contains reports whether row currently has a non-zero diff.
func (c *Collection) Contains(row datalog.Tuple) bool {
	for _, e := range c.buckets[row.Hash()] {
		if e.Row.Equal(row) {
			return true
		}
	}
	return false
}

// ForEach visits every present (tuple, diff) pair. Iteration order is
// unspecified: the result set is deterministic, but result order is
// not.
func (c *Collection) ForEach(fn func(datalog.Tuple, semiring.Diff)) {
	for _, bucket := range c.buckets {
		for _, e := range bucket {
			fn(e.Row, e.Diff)
		}
	}
}

// Rows returns every present tuple, discarding diffs.
func (c *Collection) Rows() []datalog.Tuple {
	out := make([]datalog.Tuple, 0, c.count)
	c.ForEach(func(row datalog.Tuple, _ semiring.Diff) {
		out = append(out, row)
	})
	return out
}

// keyOf renders the projection of row onto cols into a string usable as
// a hash-join/group-by key. It folds in each selected column's
// Value.Hash() rather than its String() rendering, for the same reason
// Collection buckets on Hash(): distinct vectors of equal length must
// not collide.
func keyOf(row datalog.Tuple, cols []int) string {
	var b strings.Builder
	for _, c := range cols {
		fmt.Fprintf(&b, "%x:", row[c].Hash())
	}
	return b.String()
}

// diffValue extracts the underlying numeric magnitude of a diff value
// regardless of which semiring produced it, used by the operators that
// must combine diffs across two collections of potentially different
// semirings (Join's multiplicative combination, Union's meet).
func diffValue(d semiring.Diff) int64 {
	switch v := d.(type) {
	case semiring.CountingDiff:
		return int64(v)
	case semiring.BooleanDiff:
		return int64(v)
	case semiring.MinDiff:
		return int64(v)
	case semiring.MaxDiff:
		return int64(v)
	default:
		return 0
	}
}

// weightOf is diffValue specialized for aggregate bag/set accounting:
// under Boolean (set semantics) every present row counts once no matter
// its saturating magnitude; under every other semiring the magnitude
// itself is the derivation count, governing sum/avg/count bag-vs-set
// behavior.
func weightOf(d semiring.Diff) int64 {
	if b, ok := d.(semiring.BooleanDiff); ok {
		if int8(b) != 0 {
			return 1
		}
		return 0
	}
	return diffValue(d)
}

// reinterpret recasts a diff produced under one semiring into the
// concrete Diff type another semiring's Collection requires, used
// whenever Union or Join combine collections whose semirings differ
// (Boolean ⊓ Counting = Counting).
func reinterpret(d semiring.Diff, sr semiring.Type) semiring.Diff {
	if d.IsZero() {
		return semiring.Zero(sr)
	}
	switch sr {
	case semiring.Boolean:
		return semiring.BooleanOne
	case semiring.Min:
		return semiring.MinDiff(diffValue(d))
	case semiring.Max:
		return semiring.MaxDiff(diffValue(d))
	default:
		v := diffValue(d)
		if v == 0 {
			v = 1
		}
		return semiring.CountingDiff(v)
	}
}

// multiplyDiff computes the multiplicative combination of two diffs
// under a join -- the "combine derivations by multiplication" rule from
// the glossary's semiring entry -- in the target semiring sr, which may
// differ from either operand's own semiring (Join's output semiring is
// the meet of its children's).
func multiplyDiff(sr semiring.Type, a, b semiring.Diff) semiring.Diff {
	switch sr {
	case semiring.Boolean:
		if diffValue(a) == 0 || diffValue(b) == 0 {
			return semiring.BooleanZero
		}
		return semiring.BooleanOne
	case semiring.Min:
		av, bv := diffValue(a), diffValue(b)
		if av == int64(semiring.MinInfinity) || bv == int64(semiring.MinInfinity) {
			return semiring.MinInfinity
		}
		return semiring.MinDiff(av + bv)
	case semiring.Max:
		av, bv := diffValue(a), diffValue(b)
		if av == int64(semiring.MaxInfinity) || bv == int64(semiring.MaxInfinity) {
			return semiring.MaxInfinity
		}
		return semiring.MaxDiff(av + bv)
	default:
		return semiring.CountingDiff(diffValue(a) * diffValue(b))
	}
}

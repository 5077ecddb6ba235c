package datalog

// CompareValues compares two Values using the total order defined by
// Value.Compare (NaN sorts below all floats; cross-kind comparisons fall
// back to a stable kind ordering). Kept as a package-level function,
// mirroring the free-function comparator idiom the rest of the pipeline
// (join planning, top-k ranking) expects to pass around as a func value.
func CompareValues(a, b Value) int {
	return a.Compare(b)
}

// ValuesEqual reports whether two Values are Equal, applying the
// accepted numeric/timestamp coercions.
func ValuesEqual(a, b Value) bool {
	return a.Equal(b)
}

// Less builds a less-than predicate over Tuple rows for a single column,
// honoring `desc` for descending order. Nothing in this module calls it;
// the ranking aggregates (top_k, top_k_threshold) sort with their own
// comparator.
func Less(col int, desc bool) func(a, b Tuple) bool {
	return func(a, b Tuple) bool {
		c := CompareValues(a[col], b[col])
		if desc {
			return c > 0
		}
		return c < 0
	}
}

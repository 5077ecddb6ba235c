package ir

import "fmt"

// AggregateFunc names a reducing or ranking aggregate over one input
// column.
type AggregateFunc byte

const (
	Count AggregateFunc = iota
	CountDistinct
	Sum
	Min
	Max
	Avg
	TopK
	TopKThreshold
	WithinRadius
)

func (f AggregateFunc) String() string {
	switch f {
	case Count:
		return "count"
	case CountDistinct:
		return "count_distinct"
	case Sum:
		return "sum"
	case Min:
		return "min"
	case Max:
		return "max"
	case Avg:
		return "avg"
	case TopK:
		return "top_k"
	case TopKThreshold:
		return "top_k_threshold"
	case WithinRadius:
		return "within_radius"
	default:
		return "unknown"
	}
}

// IsRanking reports whether the aggregate can emit more than one output
// row per group (a "ranking aggregate").
func (f AggregateFunc) IsRanking() bool {
	return f == TopK || f == TopKThreshold || f == WithinRadius
}

// AggSpec is one (function, input column) pair inside an Aggregate node,
// plus the ranking parameters that apply only to ranking aggregates.
type AggSpec struct {
	Func  AggregateFunc
	Col   int    // input column the aggregate reads
	Alias string // output column base name; full name is "<func>_<alias>"

	// Ranking aggregate parameters.
	K          int     // TopK / TopKThreshold
	OrderCol   int     // TopK / TopKThreshold: column to rank by
	Descending bool    // TopK / TopKThreshold
	Threshold  float64 // TopKThreshold: minimum/maximum score to include
	DistCol    int     // WithinRadius: column carrying the distance
	MaxDist    float64 // WithinRadius: inclusive distance bound
}

func (a AggSpec) outputName() string {
	return fmt.Sprintf("%s_%s", a.Func, a.Alias)
}

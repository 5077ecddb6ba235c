package dataflow

import (
	"sort"

	"github.com/lumendb/datalogx/datalog"
	"github.com/lumendb/datalogx/datalog/ir"
	"github.com/lumendb/datalogx/datalog/semiring"
)

// weightedRow is one input row to a group, with its derivation weight
// already unwrapped from whatever semiring its source collection used
// (each row is weighted by the input collection's diff).
type weightedRow struct {
	row    datalog.Tuple
	weight int64
}

// aggGroup accumulates every row sharing one set of group-by values.
type aggGroup struct {
	keyRow datalog.Tuple
	rows   []weightedRow
}

func (g *Generator) evalAggregate(v ir.Aggregate) (*Collection, error) {
	in, err := g.Eval(v.Input)
	if err != nil {
		return nil, err
	}
	groups := make(map[string]*aggGroup)
	in.ForEach(func(row datalog.Tuple, diff semiring.Diff) {
		w := weightOf(diff)
		if w == 0 {
			return
		}
		key := keyOf(row, v.GroupBy)
		grp, ok := groups[key]
		if !ok {
			grp = &aggGroup{keyRow: project(row, v.GroupBy)}
			groups[key] = grp
		}
		grp.rows = append(grp.rows, weightedRow{row: row, weight: w})
	})

	sr := nodeSemiring(v)
	out := NewCollection(sr)
	for _, grp := range groups {
		for _, row := range computeAggRows(v.Aggs, grp) {
			out.Add(row, semiring.One(sr))
		}
	}
	return out, nil
}

// computeAggRows produces the output row(s) for one group. A ranking
// aggregate (TopK/TopKThreshold/WithinRadius) is the sole entry in Aggs
// when present -- it replaces rather than joins alongside ordinary
// reducers, and yields one output row per surviving ranked input row
// rather than one row per group.
func computeAggRows(specs []ir.AggSpec, grp *aggGroup) []datalog.Tuple {
	for _, spec := range specs {
		if spec.Func.IsRanking() {
			return rankingRows(spec, grp)
		}
	}
	row := append(grp.keyRow.Clone(), make(datalog.Tuple, len(specs))...)
	for i, spec := range specs {
		row[len(grp.keyRow)+i] = evalAggSpec(spec, grp.rows)
	}
	return []datalog.Tuple{row}
}

// evalAggSpec reduces one non-ranking aggregate over a group's rows.
func evalAggSpec(spec ir.AggSpec, rows []weightedRow) datalog.Value {
	switch spec.Func {
	case ir.Count:
		var n int64
		for _, r := range rows {
			n += r.weight
		}
		return datalog.Int64(n)
	case ir.CountDistinct:
		seen := make(map[uint64]datalog.Value)
		for _, r := range rows {
			v := r.row[spec.Col]
			seen[v.Hash()] = v
		}
		return datalog.Int64(int64(len(seen)))
	case ir.Sum:
		var sum float64
		for _, r := range rows {
			if f, ok := r.row[spec.Col].AsFloat64(); ok {
				sum += f * float64(r.weight)
			}
		}
		return datalog.Float64(sum)
	case ir.Avg:
		var sum float64
		var n int64
		for _, r := range rows {
			if f, ok := r.row[spec.Col].AsFloat64(); ok {
				sum += f * float64(r.weight)
				n += r.weight
			}
		}
		if n == 0 {
			return datalog.Float64(0)
		}
		return datalog.Float64(sum / float64(n))
	case ir.Min:
		return extremal(rows, spec.Col, -1)
	case ir.Max:
		return extremal(rows, spec.Col, 1)
	default:
		return datalog.Null
	}
}

// extremal returns the row value at spec.Col minimizing (sign<0) or
// maximizing (sign>0) Value.Compare order.
func extremal(rows []weightedRow, col int, sign int) datalog.Value {
	if len(rows) == 0 {
		return datalog.Null
	}
	best := rows[0].row[col]
	for _, r := range rows[1:] {
		v := r.row[col]
		if sign*v.Compare(best) > 0 {
			best = v
		}
	}
	return best
}

// rankingRows orders a group's rows and materializes one output row per
// surviving rank: groupvals followed by the ranked column's own value,
// matching the (groupFields, aggFields) schema the IR builder assigns a
// ranking aggregate (aggOutputType passes the input column's own type
// through unchanged for these three functions).
func rankingRows(spec ir.AggSpec, grp *aggGroup) []datalog.Tuple {
	rows := append([]weightedRow(nil), grp.rows...)

	orderCol := spec.OrderCol
	if orderCol == 0 && spec.Func == ir.WithinRadius {
		orderCol = spec.DistCol
	}

	switch spec.Func {
	case ir.WithinRadius:
		filtered := rows[:0]
		for _, r := range rows {
			d, ok := r.row[spec.DistCol].AsFloat64()
			if ok && d <= spec.MaxDist {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	case ir.TopKThreshold:
		filtered := rows[:0]
		for _, r := range rows {
			v, ok := r.row[orderCol].AsFloat64()
			if !ok {
				continue
			}
			if spec.Descending && v >= spec.Threshold {
				filtered = append(filtered, r)
			} else if !spec.Descending && v <= spec.Threshold {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}

	sort.SliceStable(rows, func(i, j int) bool {
		c := rows[i].row[orderCol].Compare(rows[j].row[orderCol])
		if spec.Descending {
			return c > 0
		}
		return c < 0
	})

	k := spec.K
	if k <= 0 || k > len(rows) {
		k = len(rows)
	}
	out := make([]datalog.Tuple, 0, k)
	for _, r := range rows[:k] {
		row := append(grp.keyRow.Clone(), r.row[spec.Col])
		out = append(out, row)
	}
	return out
}

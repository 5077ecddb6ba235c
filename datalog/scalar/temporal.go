package scalar

import (
	"fmt"
	"math"
	"time"

	"github.com/lumendb/datalogx/datalog"
	"github.com/lumendb/datalogx/datalog/ir"
)

// timeExtractFn extracts one calendar field (year/month/day/hour) from a
// Timestamp value, generalizing the time-range constraint composition
// in constraints/time_constraints.go from a pushdown range check into a
// pure scalar builtin the Compute operator can evaluate.
type timeExtractFn struct {
	name string
	get  func(t time.Time) int64
}

func (f timeExtractFn) Name() string { return f.name }
func (f timeExtractFn) Arity() int   { return 1 }
func (f timeExtractFn) Apply(args []datalog.Value) (datalog.Value, error) {
	ms, ok := args[0].AsTimestamp()
	if !ok {
		return datalog.Null, fmt.Errorf("%s: argument is not a timestamp", f.name)
	}
	t := time.UnixMilli(ms).UTC()
	return datalog.Int64(f.get(t)), nil
}

// decayFn scores temporal recency with exponential decay:
// exp(-ln(2) * age / halflifeMillis), so the score is 1 at age=0 and 0.5
// at age=halflife, mirroring original_source/src/temporal_ops.rs's decay
// scoring.
type decayFn struct{}

func (decayFn) Name() string { return "time_decay" }
func (decayFn) Arity() int   { return 3 }
func (decayFn) Apply(args []datalog.Value) (datalog.Value, error) {
	ts, ok := args[0].AsTimestamp()
	if !ok {
		return datalog.Null, fmt.Errorf("time_decay: first argument is not a timestamp")
	}
	now, ok := args[1].AsTimestamp()
	if !ok {
		return datalog.Null, fmt.Errorf("time_decay: second argument is not a timestamp")
	}
	halflife, ok := args[2].AsFloat64()
	if !ok || halflife <= 0 {
		return datalog.Null, fmt.Errorf("time_decay: halflife must be a positive number")
	}
	age := float64(now - ts)
	if age < 0 {
		age = 0
	}
	score := math.Exp(-math.Ln2 * age / halflife)
	return datalog.Float64(score), nil
}

func temporalFunctions() []ir.BuiltinFunction {
	return []ir.BuiltinFunction{
		timeExtractFn{name: "year", get: func(t time.Time) int64 { return int64(t.Year()) }},
		timeExtractFn{name: "month", get: func(t time.Time) int64 { return int64(t.Month()) }},
		timeExtractFn{name: "day", get: func(t time.Time) int64 { return int64(t.Day()) }},
		timeExtractFn{name: "hour", get: func(t time.Time) int64 { return int64(t.Hour()) }},
		timeExtractFn{name: "weekday", get: func(t time.Time) int64 { return int64(t.Weekday()) }},
		decayFn{},
	}
}

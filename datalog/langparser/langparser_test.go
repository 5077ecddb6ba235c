package langparser

import (
	"testing"

	"github.com/lumendb/datalogx/datalog/ast"
	"github.com/stretchr/testify/require"
)

func TestParseProgramSimpleRule(t *testing.T) {
	prog, err := ParseProgram(`[
		[(reachable ?x ?y) (edge ?x ?y)]
		[(reachable ?x ?y) (reachable ?x ?z) (edge ?z ?y)]
	]`)
	require.NoError(t, err)
	require.Len(t, prog.Rules, 2)
	require.Equal(t, "reachable", prog.Rules[0].Head.Relation)
	require.Len(t, prog.Rules[0].Body, 1)

	pos, ok := prog.Rules[0].Body[0].(ast.Positive)
	require.True(t, ok)
	require.Equal(t, "edge", pos.Atom.Relation)
}

func TestParseProgramNegationAndComparison(t *testing.T) {
	prog, err := ParseProgram(`[
		[(lonely ?x) (person ?x) (not (has-friend ?x)) (> ?x 0)]
	]`)
	require.NoError(t, err)
	require.Len(t, prog.Rules[0].Body, 3)
	require.IsType(t, ast.Negated{}, prog.Rules[0].Body[1])
	cmp, ok := prog.Rules[0].Body[2].(ast.Comparison)
	require.True(t, ok)
	require.Equal(t, ast.OpGt, cmp.Op)
}

func TestParseProgramHnswAndAggregate(t *testing.T) {
	prog, err := ParseProgram(`[
		[(nearby ?id ?dist) (hnsw-nearest "embeddings" [0.1 0.2 0.3] 5 ?id ?dist :ef-search 50)]
		[(total ?g (sum ?v)) (scored ?g ?v)]
		[(top ?g (top-k 2 ?id ?score desc)) (scored2 ?g ?id ?score)]
	]`)
	require.NoError(t, err)
	require.Len(t, prog.Rules, 3)

	hnsw, ok := prog.Rules[0].Body[0].(ast.HnswNearest)
	require.True(t, ok)
	require.Equal(t, "embeddings", hnsw.Index)
	require.Equal(t, 5, hnsw.K)
	require.NotNil(t, hnsw.EfSearch)
	require.Equal(t, 50, *hnsw.EfSearch)

	aggTerm := prog.Rules[1].Head.Args[1]
	agg, ok := aggTerm.(ast.Aggregate)
	require.True(t, ok)
	require.Equal(t, ast.AggSum, agg.Fn)

	rankTerm := prog.Rules[2].Head.Args[1]
	rank, ok := rankTerm.(ast.Aggregate)
	require.True(t, ok)
	require.Equal(t, ast.AggTopK, rank.Fn)
	require.Equal(t, 2, rank.K)
	require.True(t, rank.Descending)
}

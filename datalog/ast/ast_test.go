package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAtomVariablesDedup(t *testing.T) {
	a := Atom{Relation: "edge", Args: []Term{Var{"X"}, Var{"Y"}, Var{"X"}}}
	require.Equal(t, []Variable{"X", "Y"}, a.Variables())
}

func TestAtomVariablesIgnoresNonVarTerms(t *testing.T) {
	a := Atom{Relation: "edge", Args: []Term{Var{"X"}, IntConst{5}, Placeholder{}}}
	require.Equal(t, []Variable{"X"}, a.Variables())
}

func TestArithmeticString(t *testing.T) {
	e := Arithmetic{Op: ArithAdd, Left: Var{"D"}, Right: IntConst{1}}
	require.Contains(t, e.String(), "+")
}

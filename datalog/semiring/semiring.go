// Package semiring implements the diff-type abstraction: a capability
// set (associative addition with identity, multiplicative identity,
// optional negation, bounded size) expressed as a small tagged enum
// rather than dynamic dispatch in the hot path. The dataflow code
// generator (datalog/dataflow) picks a parametric instantiation of its
// operator graph per semiring value, instead of boxing an interface.
package semiring

import "fmt"

// Type tags which semiring a dataflow collection's diff values live in.
type Type byte

const (
	// Unknown is the zero value, before the semiring-annotation pass runs.
	Unknown Type = iota
	// Counting is the integer semiring under (+, 0, 1): bag semantics.
	Counting
	// Boolean is the 1-byte signed semiring under saturating addition
	// (zero 0, one 1), used for set semantics; sums clamp to [-128,127].
	Boolean
	// Min is the tropical (min, +inf, 0) semiring, non-Abelian under
	// subtraction: deduplication must go through Reduce, never through
	// an inverse-based Distinct.
	Min
	// Max is the tropical (max, -inf, 0) semiring, symmetric to Min.
	Max
)

func (t Type) String() string {
	switch t {
	case Counting:
		return "counting"
	case Boolean:
		return "boolean"
	case Min:
		return "min"
	case Max:
		return "max"
	default:
		return "unknown"
	}
}

// IsAbelian reports whether the semiring's addition has an inverse, i.e.
// whether distinct-by-subtraction is a legal deduplication strategy.
// Min/Max are tropical semirings with no additive inverse: non-Abelian,
// so distinct-by-inverse is forbidden and deduplication must go through
// reduce.
func (t Type) IsAbelian() bool {
	return t == Counting || t == Boolean
}

// Meet computes the semiring produced when two collections of different
// semirings are combined by Join/Antijoin/Union: Boolean ⊓ Counting =
// Counting (the more permissive multiplicity model wins). Meeting two
// tropical semirings of the same kind is idempotent; meeting Min with
// Max (or either with Counting) is a modeling error the caller must not
// reach and is treated as Counting defensively.
func Meet(a, b Type) Type {
	if a == Unknown {
		return b
	}
	if b == Unknown {
		return a
	}
	if a == b {
		return a
	}
	if (a == Boolean && b == Counting) || (a == Counting && b == Boolean) {
		return Counting
	}
	return Counting
}

// Diff is one accumulated value in an incremental dataflow collection —
// the payload carried alongside a Tuple describing "how much" of that
// tuple is currently present.
type Diff interface {
	// Add combines two diffs of the same semiring.
	Add(Diff) Diff
	// IsZero reports whether the diff is the additive identity (the
	// tuple is effectively absent and may be compacted away).
	IsZero() bool
	// String renders the diff for tracing.
	String() string
}

// CountingDiff is the Counting semiring's diff value: plain integer
// addition, identity 1 (a single derivation), zero 0.
type CountingDiff int64

func (d CountingDiff) Add(o Diff) Diff { return d + o.(CountingDiff) }
func (d CountingDiff) IsZero() bool    { return d == 0 }
func (d CountingDiff) String() string  { return fmt.Sprintf("%d", int64(d)) }

// CountingOne is the Counting semiring's multiplicative identity.
const CountingOne CountingDiff = 1

// CountingZero is the Counting semiring's additive identity.
const CountingZero CountingDiff = 0

// BooleanDiff is the Boolean semiring's diff value: saturating addition
// over a 1-byte signed range, identity 1, zero 0.
type BooleanDiff int8

func (d BooleanDiff) Add(o Diff) Diff {
	sum := int16(d) + int16(o.(BooleanDiff))
	if sum > 127 {
		sum = 127
	}
	if sum < -128 {
		sum = -128
	}
	return BooleanDiff(sum)
}
func (d BooleanDiff) IsZero() bool   { return d == 0 }
func (d BooleanDiff) String() string { return fmt.Sprintf("%d", int8(d)) }

const BooleanOne BooleanDiff = 1
const BooleanZero BooleanDiff = 0

// MinDiff is the tropical Min semiring's diff value: addition is
// `min`, additive identity +infinity (represented by MinInfinity),
// multiplicative identity 0 (saturating addition is used for the
// multiplicative combination in the generator, not here).
type MinDiff int64

// MinInfinity represents the Min semiring's additive identity (+∞).
const MinInfinity MinDiff = 1<<63 - 1

func (d MinDiff) Add(o Diff) Diff {
	other := o.(MinDiff)
	if other < d {
		return other
	}
	return d
}
func (d MinDiff) IsZero() bool   { return d == MinInfinity }
func (d MinDiff) String() string { return fmt.Sprintf("min(%d)", int64(d)) }

// MaxDiff is the tropical Max semiring's diff value: addition is `max`,
// additive identity -infinity.
type MaxDiff int64

// MaxInfinity represents the Max semiring's additive identity (−∞).
const MaxInfinity MaxDiff = -(1<<63 - 1)

func (d MaxDiff) Add(o Diff) Diff {
	other := o.(MaxDiff)
	if other > d {
		return other
	}
	return d
}
func (d MaxDiff) IsZero() bool   { return d == MaxInfinity }
func (d MaxDiff) String() string { return fmt.Sprintf("max(%d)", int64(d)) }

// Zero returns the additive identity diff value for a semiring type.
func Zero(t Type) Diff {
	switch t {
	case Boolean:
		return BooleanZero
	case Min:
		return MinInfinity
	case Max:
		return MaxInfinity
	default:
		return CountingZero
	}
}

// One returns the multiplicative identity diff value for a semiring
// type.
func One(t Type) Diff {
	switch t {
	case Boolean:
		return BooleanOne
	case Min:
		return MinDiff(0)
	case Max:
		return MaxDiff(0)
	default:
		return CountingOne
	}
}

// CanDistinctByInverse reports whether the code generator may implement
// Distinct by subtracting a tuple's prior diff (the fast path for
// Abelian semirings). For non-Abelian semirings it must instead Reduce
// (recompute the group's extremum).
func CanDistinctByInverse(t Type) bool {
	return t.IsAbelian()
}

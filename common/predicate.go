package common

import "cmp"

// PredicateOperator is one of the six comparisons used by selections and joins.
type PredicateOperator int

const (
	Equals PredicateOperator = iota
	NotEquals
	LessThan
	LessThanEquals
	GreaterThan
	GreaterThanEquals
)

func (p PredicateOperator) String() string {
	switch p {
	case Equals:
		return "="
	case NotEquals:
		return "!="
	case LessThan:
		return "<"
	case LessThanEquals:
		return "<="
	case GreaterThan:
		return ">"
	case GreaterThanEquals:
		return ">="
	}
	return "???"
}

// Holds reports whether a three-way comparison result satisfies the operator.
func (p PredicateOperator) Holds(c int) bool {
	switch p {
	case Equals:
		return c == 0
	case NotEquals:
		return c != 0
	case LessThan:
		return c < 0
	case LessThanEquals:
		return c <= 0
	case GreaterThan:
		return c > 0
	case GreaterThanEquals:
		return c >= 0
	}
	return false
}

// Evaluate applies the comparison to a and b, which must have the same type.
func (p PredicateOperator) Evaluate(a, b Value) bool {
	return p.Holds(a.Compare(b))
}

// EvaluateOrdered applies the comparison to any pair of totally ordered Go values.
func EvaluateOrdered[T cmp.Ordered](p PredicateOperator, a, b T) bool {
	return p.Holds(cmp.Compare(a, b))
}

// FromSymbol parses a textual comparison. The second result is false for
// unrecognized text, which callers must treat as a parse error.
func FromSymbol(s string) (PredicateOperator, bool) {
	switch s {
	case "=", "==":
		return Equals, true
	case "!=", "<>":
		return NotEquals, true
	case "<":
		return LessThan, true
	case "<=":
		return LessThanEquals, true
	case ">":
		return GreaterThan, true
	case ">=":
		return GreaterThanEquals, true
	}
	return 0, false
}

// Reverse returns the operator p' such that (b p a) == (a p' b).
func (p PredicateOperator) Reverse() PredicateOperator {
	switch p {
	case LessThan:
		return GreaterThan
	case LessThanEquals:
		return GreaterThanEquals
	case GreaterThan:
		return LessThan
	case GreaterThanEquals:
		return LessThanEquals
	}
	return p
}

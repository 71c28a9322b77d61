package common

import "fmt"

// Align8 rounds the given integer up to the nearest multiple of 8.
// Row widths are padded with it so consecutive rows on a page stay word aligned.
func Align8(n int) int {
	return (n + 7) &^ 7
}

// Assert checks a condition and panics if it is false.
//
// Assertions guard invariants of the engine itself: a record whose width does not
// match its descriptor, two values of different types being compared after the
// planner already checked them, an iterator used before it was positioned. They are
// not for validating user input; plan construction problems are returned as a
// GoDBError instead.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

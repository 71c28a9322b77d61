package common

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

type GoDBErrorCode int

const (
	// DuplicateObjectError indicates an attempt to create a table that already
	// exists in the catalog.
	DuplicateObjectError GoDBErrorCode = iota
	// NoSuchObjectError indicates a request for a table that does not exist in
	// the catalog or in the transaction's temporary tables.
	NoSuchObjectError
	// ColumnNotFoundError indicates a column reference that matches no field of
	// the schema it is resolved against.
	ColumnNotFoundError
	// AmbiguousColumnError indicates an unqualified column reference that matches
	// more than one field of a schema.
	AmbiguousColumnError
	// TypeMismatchError indicates two values or columns that must share a type
	// but do not, e.g. the two columns of a join.
	TypeMismatchError
	// SchemaMismatchError indicates a record whose shape does not fit the table
	// it is inserted into.
	SchemaMismatchError
	// InvalidOperationError indicates a request that does not apply to the
	// operator it is made on, such as asking a join for its single source.
	InvalidOperationError
)

func (ec GoDBErrorCode) String() string {
	switch ec {
	case DuplicateObjectError:
		return "DuplicateObjectError"
	case NoSuchObjectError:
		return "NoSuchObjectError"
	case ColumnNotFoundError:
		return "ColumnNotFoundError"
	case AmbiguousColumnError:
		return "AmbiguousColumnError"
	case TypeMismatchError:
		return "TypeMismatchError"
	case SchemaMismatchError:
		return "SchemaMismatchError"
	case InvalidOperationError:
		return "InvalidOperationError"
	}
	return "unknown"
}

// GoDBError is the custom error type for the database engine.
// It wraps a specific GoDBErrorCode with a detailed message.
//
// Plan construction failures (unknown or ambiguous columns, mismatched join
// column types, misuse of join-only accessors) are all reported as a GoDBError so
// a caller can inspect the code and pick a different plan.
type GoDBError struct {
	Code      GoDBErrorCode
	ErrString string
}

func (e GoDBError) Error() string {
	return fmt.Sprintf("err: %s; msg: %s", e.Code.String(), e.ErrString)
}

// NewError builds a GoDBError with a formatted message.
func NewError(code GoDBErrorCode, format string, args ...any) GoDBError {
	return GoDBError{Code: code, ErrString: fmt.Sprintf(format, args...)}
}

// IsErrorCode reports whether err, or any error it wraps, is a GoDBError with the given code.
func IsErrorCode(err error, code GoDBErrorCode) bool {
	var gerr GoDBError
	if errors.As(err, &gerr) {
		return gerr.Code == code
	}
	return false
}

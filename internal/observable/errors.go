package observable

import (
	"errors"
	"fmt"
)

// Error reports a failed container or sync operation.
//
// Every failure in the core is local, synchronous and non-retryable. The
// Code identifies the category; Op names the operation that failed so the
// message stays useful after wrapping.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the operation that failed (e.g. "Insert", "RemoveRange").
	Op string

	// Message is a human-readable description.
	Message string

	// Index and Bound describe the rejected position for OUT_OF_RANGE.
	Index int
	Bound int
}

// ErrorCode categorizes errors.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates a required argument was absent.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeOutOfRange indicates an index outside the valid bound.
	ErrCodeOutOfRange ErrorCode = "OUT_OF_RANGE"

	// ErrCodeReentrancy indicates a structural mutation during dispatch to
	// more than one subscriber.
	ErrCodeReentrancy ErrorCode = "REENTRANCY_VIOLATION"

	// ErrCodeUniqueness indicates a duplicate-free collection was found to
	// hold an item more than once after a sync step.
	ErrCodeUniqueness ErrorCode = "UNIQUENESS_VIOLATION"

	// ErrCodeConsistency indicates a container broke its own internal
	// invariants. Always fatal.
	ErrCodeConsistency ErrorCode = "INTERNAL_CONSISTENCY_FAULT"
)

// Sentinels for errors.Is. Matching compares codes only.
var (
	ErrInvalidArgument = &Error{Code: ErrCodeInvalidArgument}
	ErrOutOfRange      = &Error{Code: ErrCodeOutOfRange}
	ErrReentrancy      = &Error{Code: ErrCodeReentrancy}
	ErrUniqueness      = &Error{Code: ErrCodeUniqueness}
	ErrConsistency     = &Error{Code: ErrCodeConsistency}
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of the first *Error in err's chain, or "" if there
// is none.
func CodeOf(err error) ErrorCode {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Code
	}
	return ""
}

// NewInvalidArgumentError creates an error for an absent required argument.
func NewInvalidArgumentError(op, arg string) *Error {
	return &Error{
		Code:    ErrCodeInvalidArgument,
		Op:      op,
		Message: fmt.Sprintf("%s must not be nil", arg),
	}
}

// NewOutOfRangeError creates an error for an index outside [0, bound) or
// [0, bound] depending on the operation.
func NewOutOfRangeError(op string, index, bound int) *Error {
	return &Error{
		Code:    ErrCodeOutOfRange,
		Op:      op,
		Message: fmt.Sprintf("index %d out of range (count %d)", index, bound),
		Index:   index,
		Bound:   bound,
	}
}

// NewReentrancyError creates an error for a mutation attempted while a change
// is being dispatched to several subscribers.
func NewReentrancyError(op string, subscribers int) *Error {
	return &Error{
		Code:    ErrCodeReentrancy,
		Op:      op,
		Message: fmt.Sprintf("cannot mutate while dispatching a change to %d subscribers", subscribers),
	}
}

// NewUniquenessError creates an error for a duplicate found in a collection
// that must not contain duplicates.
func NewUniquenessError(op, property string, item any) *Error {
	return &Error{
		Code:    ErrCodeUniqueness,
		Op:      op,
		Message: fmt.Sprintf("collection %q holds %v more than once", property, item),
	}
}

func newConsistencyFault(op string, members, shadow int) *Error {
	return &Error{
		Code:    ErrCodeConsistency,
		Op:      op,
		Message: fmt.Sprintf("membership count %d does not match shadow list count %d", members, shadow),
	}
}

package platform

import "errors"

// Errors shared by every engine. Engines wrap them with the offending name or
// count, so callers should match with errors.Is.
var (
	// ErrUnknownOperation is returned when the head of a list names no operation.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrUnresolvedSymbol is returned for a bare symbol that is not a declared
	// parameter, or when no resolver is installed at all.
	ErrUnresolvedSymbol = errors.New("unresolved symbol")

	// ErrMalformedTree is returned for an empty list, a non-symbol operator, or a
	// formula whose parameter list is not a list of distinct symbols.
	ErrMalformedTree = errors.New("malformed expression tree")

	// ErrArgumentCount is returned when a call supplies a different number of
	// values than the formula declares.
	ErrArgumentCount = errors.New("argument count mismatch")

	// ErrOperandCount is returned when a binary operation has fewer than two operands.
	ErrOperandCount = errors.New("operand count mismatch")

	// ErrInvalidNumber is returned for numeric literal text that does not parse.
	ErrInvalidNumber = errors.New("invalid numeric literal")

	// ErrArgumentType is returned when a named argument value is not a number.
	ErrArgumentType = errors.New("argument is not a number")

	// ErrClosed is returned when calling a function whose resources were released.
	ErrClosed = errors.New("function is closed")
)

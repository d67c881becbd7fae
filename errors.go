package restquery

import "errors"

var (
	// ErrInvalidInput is returned when a value that must be an array (or an
	// array of a fixed length) has another shape.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidPattern is returned when a "~" or "!~" value does not compile.
	ErrInvalidPattern = errors.New("invalid pattern")
	// ErrUnsupportedOperator is returned for filter operators outside the known set.
	ErrUnsupportedOperator = errors.New("not supported operator")
)

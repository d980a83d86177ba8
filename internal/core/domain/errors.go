package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmptyInput indicates no usable text after extraction.
	// Distinct from an empty book: the operation is rejected.
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown embedding type or
	// organization mode.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrProviderUnavailable indicates the structuring or embedding
	// provider is unreachable or not configured. Fatal to the
	// current operation; never retried automatically.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrMalformedProviderResponse indicates a schema violation in
	// an external provider response. Fatal, surfaced verbatim; a
	// partially-parsed structure is never propagated.
	ErrMalformedProviderResponse = errors.New("malformed provider response")

	// ErrDimensionMismatch indicates a vector whose length does not
	// match its collection or its peers. A programming or
	// configuration error, always fatal.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

package object

import "errors"

// Storage error taxonomy. Callers match with errors.Is; the distinction
// between ErrNotFound and ErrAmbiguous matters: an ambiguous abbreviation
// needs more characters, not a different key.
var (
	// ErrNotFound means the digest is absent from the cache, loose
	// storage, and every loaded pack.
	ErrNotFound = errors.New("object not found")

	// ErrAmbiguous means an abbreviated digest matched more than one
	// object.
	ErrAmbiguous = errors.New("ambiguous object prefix")

	// ErrCorrupt means framing, checksum, or length validation failed on
	// stored data. Never coerced into ErrNotFound.
	ErrCorrupt = errors.New("corrupt object")

	// ErrTypeMismatch means a decoded object's type differs from the one
	// the caller asked for.
	ErrTypeMismatch = errors.New("object type mismatch")
)

// Copyright (c) 2026 The Revault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package noisekey

import "fmt"

// ErrorKind identifies a kind of key bootstrap error.
type ErrorKind uint8

// These constants are used to identify a specific Error.
const (
	// ErrReadingKey indicates a failure to open or read an existing
	// secret key file.
	ErrReadingKey ErrorKind = iota

	// ErrWritingKey indicates a failure to create or write the secret
	// key file for a freshly generated key.
	ErrWritingKey

	// ErrInvalidKeySize indicates the secret key file does not contain
	// exactly KeySize bytes.
	ErrInvalidKeySize
)

// String returns the ErrorKind as a human-readable name.
func (k ErrorKind) String() string {
	switch k {
	case ErrReadingKey:
		return "ErrReadingKey"
	case ErrWritingKey:
		return "ErrWritingKey"
	case ErrInvalidKeySize:
		return "ErrInvalidKeySize"
	default:
		return fmt.Sprintf("Unknown ErrorKind (%d)", uint8(k))
	}
}

// Error provides a single type for errors that can happen during noise key
// bootstrap.  The Kind field classifies the failure while Err, if non-nil,
// carries the underlying cause.
type Error struct {
	Kind ErrorKind
	Err  error
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	switch e.Kind {
	case ErrReadingKey:
		return fmt.Sprintf("error reading noise key: %v", e.Err)
	case ErrWritingKey:
		return fmt.Sprintf("error writing noise key: %v", e.Err)
	case ErrInvalidKeySize:
		return "invalid noise key length"
	default:
		return e.Kind.String()
	}
}

// Unwrap returns the underlying error, if any.
func (e Error) Unwrap() error {
	return e.Err
}

// makeError creates an Error given a kind and an underlying cause.
func makeError(kind ErrorKind, err error) Error {
	return Error{Kind: kind, Err: err}
}

package storage

import (
	"errors"
	"fmt"
)

// ReadError means a stored document could not be loaded or decoded.
// Decode is set when the backend answered but the bytes were not a valid
// document; only that case may be treated as "no data".
type ReadError struct {
	Key    Key
	Err    error
	Decode bool
}

func (e *ReadError) Error() string { return fmt.Sprintf("read %s: %v", e.Key, e.Err) }

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError means a document could not be persisted. In-memory state held
// by the caller is not rolled back.
type WriteError struct {
	Key Key
	Err error
}

func (e *WriteError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("write: %v", e.Err)
	}
	return fmt.Sprintf("write %s: %v", e.Key, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func IsReadError(err error) bool {
	var re *ReadError
	return errors.As(err, &re)
}

// IsCorrupt reports whether err is a *ReadError caused by undecodable bytes.
func IsCorrupt(err error) bool {
	var re *ReadError
	return errors.As(err, &re) && re.Decode
}

func IsWriteError(err error) bool {
	var we *WriteError
	return errors.As(err, &we)
}

package hashstore

import "errors"

var (
	// ErrFieldNotFound is returned by Hash.Get when the field is not set.
	ErrFieldNotFound = errors.New("field not found")
	// ErrNoSuchKey is returned when an operation requires an existing key.
	ErrNoSuchKey = errors.New("no such key")
	// ErrNotInteger is returned by IncrBy when the stored value is not a
	// base-10 int64 or the result would overflow.
	ErrNotInteger = errors.New("hash value is not an integer or out of range")
	// ErrTxFailed is returned by Watch when a watched key changed.
	ErrTxFailed = errors.New("transaction aborted: watched key changed")
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store is closed")
)

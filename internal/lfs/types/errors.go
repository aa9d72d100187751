package types

import (
	"errors"
	"fmt"
)

// Decoder errors
var (
	// Commit-level recovery signals, never surfaced past the parser
	ErrTruncated        = errors.New("truncated")
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// Structural diagnostics
	ErrCorruptedMdir     = errors.New("corrupted metadata pair")
	ErrCycleDetected     = errors.New("cycle detected")
	ErrMissingDirTarget  = errors.New("missing directory target")
	ErrBadGlobalState    = errors.New("bad global state")
	ErrBadStruct         = errors.New("malformed struct")
	ErrUnsupportedStruct = errors.New("unsupported struct")

	// Block device errors
	ErrInvalidBlockSize = errors.New("invalid block size")
	ErrBlockOutOfRange  = errors.New("block out of range")
	ErrIOError          = errors.New("I/O error")
	ErrUnknownFormat    = errors.New("unknown image format")

	// Lookup errors
	ErrNotFound    = errors.New("not found")
	ErrNotFile     = errors.New("not a file")
	ErrInvalidPath = errors.New("invalid path")
)

// LFSError carries the operation and object an error occurred on
type LFSError struct {
	Err       error  // The underlying error
	Operation string // The operation that failed
	Object    string // Block, pair or path the operation was working on
	Detail    string // Additional details
}

// Error implements the error interface
func (e *LFSError) Error() string {
	if e.Object != "" && e.Detail != "" {
		return fmt.Sprintf("%s: %s [%s]: %v", e.Operation, e.Object, e.Detail, e.Err)
	} else if e.Object != "" {
		return fmt.Sprintf("%s: %s: %v", e.Operation, e.Object, e.Err)
	} else if e.Detail != "" {
		return fmt.Sprintf("%s: %v [%s]", e.Operation, e.Err, e.Detail)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error
func (e *LFSError) Unwrap() error {
	return e.Err
}

// NewLFSError creates a new LFSError with the given details
func NewLFSError(err error, operation string, object string, detail string) error {
	return &LFSError{
		Err:       err,
		Operation: operation,
		Object:    object,
		Detail:    detail,
	}
}

// IsCorruption reports whether err describes on-disk damage rather than a usage or I/O problem
func IsCorruption(err error) bool {
	return errors.Is(err, ErrCorruptedMdir) || errors.Is(err, ErrChecksumMismatch) ||
		errors.Is(err, ErrTruncated) || errors.Is(err, ErrBadStruct) ||
		errors.Is(err, ErrBadGlobalState) || errors.Is(err, ErrCycleDetected) ||
		errors.Is(err, ErrMissingDirTarget)
}

// IsIOError returns true if the error is related to device access
func IsIOError(err error) bool {
	return errors.Is(err, ErrIOError) || errors.Is(err, ErrBlockOutOfRange)
}

// IsNotFound returns true if a lookup failed
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

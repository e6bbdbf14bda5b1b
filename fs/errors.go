// Package fs is the NTFS file-system runtime: MFT bootstrap and caching,
// cluster-block streaming, the volume bitmap, and the security-descriptor
// index, behind a single read/write-coordinated facade.
package fs

import (
	"errors"
	"fmt"
)

// ErrorCode enumerates the stable, caller-visible failure classes a
// session can surface. Structural corruption is reported, never repaired.
type ErrorCode string

const (
	InvalidArgument     ErrorCode = "InvalidArgument"
	AlreadyInitialized  ErrorCode = "AlreadyInitialized"
	OutOfBounds         ErrorCode = "OutOfBounds"
	MissingValue        ErrorCode = "MissingValue"
	CorruptRecord       ErrorCode = "CorruptRecord"
	CorruptRuns         ErrorCode = "CorruptRuns"
	CorruptBitmap       ErrorCode = "CorruptBitmap"
	TruncatedAttribute  ErrorCode = "TruncatedAttribute"
	UnknownAttributeKind ErrorCode = "UnknownAttributeKind"
	CyclicAttributeList ErrorCode = "CyclicAttributeList"
	EntryOutOfRange     ErrorCode = "EntryOutOfRange"
	IoError             ErrorCode = "IoError"
	NotFound            ErrorCode = "NotFound"
	Cancelled           ErrorCode = "Cancelled"
	BusyOnRelease       ErrorCode = "BusyOnRelease"
)

// Error is the single top-level error type this package returns. It
// carries a chain of causes describing which entry/attribute/offset
// failed, per spec.
type Error struct {
	Code   ErrorCode
	Op     string
	Offset int64
	// HasOffset distinguishes "offset 0 is meaningful" from "no offset".
	HasOffset bool
	Err       error
}

func (e *Error) Error() string {
	if e.HasOffset {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s @ %#x: %v", e.Op, e.Code, e.Offset, e.Err)
		}
		return fmt.Sprintf("%s: %s @ %#x", e.Op, e.Code, e.Offset)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, SomeErrorCode) style checks by comparing codes
// when the target is itself an *Error with no wrapped cause.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

func newErr(code ErrorCode, op string, cause error) error {
	return &Error{Code: code, Op: op, Err: cause}
}

func newErrAt(code ErrorCode, op string, offset int64, cause error) error {
	return &Error{Code: code, Op: op, Offset: offset, HasOffset: true, Err: cause}
}

// CodeOf returns the ErrorCode carried by err, and false if err does not
// originate from this package.
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

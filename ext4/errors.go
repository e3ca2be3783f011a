package ext4

import (
	"errors"
	"fmt"
)

// Code classifies the errors this package can return, per spec.md §7.
type Code int

const (
	// ENOSPC means no free inode or block was available in any eligible group.
	ENOSPC Code = iota + 1
	// ENOENT means a directory entry or extent range was not found.
	ENOENT
	// EINVAL means the caller asked to free an already-free bitmap bit, or
	// the on-disk structure handed to a decoder was malformed.
	EINVAL
	// EIO means the block device faulted.
	EIO
	// EFSCORRUPTED means an on-disk invariant was violated: bad magic, a
	// tail that doesn't match, an entry chain that doesn't sum correctly,
	// or a checksum mismatch.
	EFSCORRUPTED
)

func (c Code) String() string {
	switch c {
	case ENOSPC:
		return "ENOSPC"
	case ENOENT:
		return "ENOENT"
	case EINVAL:
		return "EINVAL"
	case EIO:
		return "EIO"
	case EFSCORRUPTED:
		return "EFSCORRUPTED"
	default:
		return "EUNKNOWN"
	}
}

// Error is the error type returned by every operation in this package.
// Callers branch on kind with IsCode, or with errors.As to recover the
// Code directly.
type Error struct {
	Code Code
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.msg)
}

func (e *Error) Unwrap() error { return e.err }

// Is makes errors.Is(err, &Error{Code: ENOSPC}) match any *Error with
// the same Code; the package exports no per-code sentinel error values.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.Code == te.Code
	}
	return false
}

func newError(code Code, format string, args ...interface{}) error {
	return &Error{Code: code, msg: fmt.Sprintf(format, args...)}
}

func wrapError(code Code, err error, format string, args ...interface{}) error {
	return &Error{Code: code, msg: fmt.Sprintf(format, args...), err: err}
}

// IsCode reports whether err (or something it wraps) is an *Error with the
// given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

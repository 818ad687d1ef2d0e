package library

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidReference is returned when a user, book or account does not exist.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrPolicyDenied is returned when lending rules forbid the operation.
	ErrPolicyDenied = errors.New("not permitted")
	// ErrAuthFailed is returned for an unknown user id or a wrong password.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrAccessDenied is returned when the session may not perform a privileged operation.
	ErrAccessDenied = errors.New("access denied")
	// ErrDuplicate is returned when adding a book or user whose key is taken.
	ErrDuplicate = errors.New("already exists")
	// ErrCorruptRecord matches any *CorruptRecordError.
	ErrCorruptRecord = errors.New("corrupt record")
	// ErrUnsafeSave is returned by Save when the stored data could not be loaded and
	// writing would replace it.
	ErrUnsafeSave = errors.New("refusing to overwrite data that failed to load")
)

// CorruptRecordError reports a stored record that failed to decode or validate.
type CorruptRecordError struct {
	File   string
	Line   int // 1-based line or record index, 0 when not applicable
	Reason string
	Err    error
}

func (e *CorruptRecordError) Error() string {
	msg := fmt.Sprintf("corrupt record in %s", e.File)
	if e.Line > 0 {
		msg += fmt.Sprintf(" at line %d", e.Line)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CorruptRecordError) Unwrap() error { return e.Err }

func (e *CorruptRecordError) Is(target error) bool { return target == ErrCorruptRecord }

func corrupt(file string, line int, err error, format string, args ...any) *CorruptRecordError {
	return &CorruptRecordError{File: file, Line: line, Reason: fmt.Sprintf(format, args...), Err: err}
}

func denied(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPolicyDenied, fmt.Sprintf(format, args...))
}

func unknownUser(id int64) error { return fmt.Errorf("%w: user %d not found", ErrInvalidReference, id) }

func unknownBook(isbn string) error {
	return fmt.Errorf("%w: book %s not found", ErrInvalidReference, isbn)
}

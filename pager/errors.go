package pager

import (
	"errors"
	"fmt"
)

// ErrorCode represents different types of simulation errors
type ErrorCode int

const (
	// Generic errors
	ErrCodeUnknown ErrorCode = iota
	ErrCodeInternal

	// Trace errors
	ErrCodeTraceUnreadable        // fatal: trace cannot be opened or read
	ErrCodeMalformedLine          // warning: reference line skipped
	ErrCodePageOutOfRange         // warning: reference outside the page table
	ErrCodeReferenceCountMismatch // warning: NR differs from parsed references
	ErrCodePageCountInferred      // warning: NP missing, derived from references

	// Session errors
	ErrCodeInvalidConfig
	ErrCodeSessionReused
	ErrCodeInvalidPhase
)

// String returns a short name for the code, used in logs and recordings
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeInternal:
		return "internal"
	case ErrCodeTraceUnreadable:
		return "trace_unreadable"
	case ErrCodeMalformedLine:
		return "malformed_line"
	case ErrCodePageOutOfRange:
		return "page_out_of_range"
	case ErrCodeReferenceCountMismatch:
		return "reference_count_mismatch"
	case ErrCodePageCountInferred:
		return "page_count_inferred"
	case ErrCodeInvalidConfig:
		return "invalid_config"
	case ErrCodeSessionReused:
		return "session_reused"
	case ErrCodeInvalidPhase:
		return "invalid_phase"
	default:
		return "unknown"
	}
}

// SimError represents a simulator error or warning with context
type SimError struct {
	Code    ErrorCode
	Message string
	Op      string // Operation that failed
	Line    int    // Trace line number, 0 when not tied to a line
	Err     error  // Underlying error (if any)
}

// Error implements the error interface
func (e *SimError) Error() string {
	msg := e.Message
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *SimError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a specific error code
func (e *SimError) Is(target error) bool {
	if t, ok := target.(*SimError); ok {
		return e.Code == t.Code
	}
	return false
}

// Fatal reports whether the error must abort the session.
// Format and consistency warnings never do.
func (e *SimError) Fatal() bool {
	switch e.Code {
	case ErrCodeMalformedLine, ErrCodePageOutOfRange,
		ErrCodeReferenceCountMismatch, ErrCodePageCountInferred:
		return false
	default:
		return true
	}
}

// NewSimError creates a new simulator error
func NewSimError(code ErrorCode, op, message string, err error) *SimError {
	return &SimError{
		Code:    code,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// Helper functions for common errors

func ErrTraceUnreadable(op, name string, err error) *SimError {
	return NewSimError(
		ErrCodeTraceUnreadable,
		op,
		fmt.Sprintf("cannot read trace %s", name),
		err,
	)
}

func ErrMalformedLine(line int, reason, text string) *SimError {
	e := NewSimError(
		ErrCodeMalformedLine,
		"LoadTrace",
		fmt.Sprintf("%s: %q", reason, text),
		nil,
	)
	e.Line = line
	return e
}

func ErrPageOutOfRange(line, page, numPages int) *SimError {
	e := NewSimError(
		ErrCodePageOutOfRange,
		"LoadTrace",
		fmt.Sprintf("page %d outside page table of %d pages", page, numPages),
		nil,
	)
	e.Line = line
	return e
}

func ErrReferenceCountMismatch(declared int64, parsed int) *SimError {
	return NewSimError(
		ErrCodeReferenceCountMismatch,
		"LoadTrace",
		fmt.Sprintf("expected NR=%d but parsed %d references", declared, parsed),
		nil,
	)
}

func ErrPageCountInferred(numPages int) *SimError {
	return NewSimError(
		ErrCodePageCountInferred,
		"LoadTrace",
		fmt.Sprintf("NP not declared, using %d pages from references", numPages),
		nil,
	)
}

func ErrInvalidConfig(op, message string) *SimError {
	return NewSimError(ErrCodeInvalidConfig, op, message, nil)
}

func ErrSessionReused(op string) *SimError {
	return NewSimError(
		ErrCodeSessionReused,
		op,
		"session already ran; create a new session per simulation",
		nil,
	)
}

func ErrInvalidPhase(op string, from, to Phase) *SimError {
	return NewSimError(
		ErrCodeInvalidPhase,
		op,
		fmt.Sprintf("illegal phase transition %s -> %s", from, to),
		nil,
	)
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var se *SimError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrCodeUnknown
func GetErrorCode(err error) ErrorCode {
	var se *SimError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrCodeUnknown
}

// IsFatal reports whether err aborts a run. Non-SimError errors are fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var se *SimError
	if errors.As(err, &se) {
		return se.Fatal()
	}
	return true
}

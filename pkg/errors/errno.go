// Package errors provides the structured error system for ido-converge.
//
// Every fatal condition the converger can hit is a registered Errno with a
// globally unique code and a process exit status. Codes are grouped by
// category so an operator (or a wrapper script) can tell from the exit status
// alone whether a run failed on its own configuration or on an external
// command.
//
// Error Code Format: BBCC (4 digits)
//
//	BB (01-99): Category code
//	CC (00-99): Sequence number within the category
//
// Category Codes (BB):
//
//	01: Configuration errors (bad or ambiguous input, exit 2)
//	02: Precondition errors (required base state missing, exit 3)
//	03: External command errors (package manager, schema check/import, exit 4)
//	04: Render errors (internal invariant violations, exit 5)
//
// Usage:
//
//	// Using predefined errors
//	return errors.ErrTLSMaterial.WithMessage("tls key: both path and inline material given")
//
//	// Wrapping underlying errors
//	return errors.ErrSchemaImport.WithCause(err)
package errors

import (
	"errors"
	"fmt"
	"sync"
)

// Errno represents a structured error with a unique code and exit status.
type Errno struct {
	// Code is the unique error code.
	Code int `json:"code"`

	// Exit is the process exit status a run failing with this error ends with.
	Exit int `json:"-"`

	// Message is the human readable error message. It must never contain
	// secret values; callers attach context with WithMessagef, not by
	// interpolating credentials.
	Message string `json:"message"`

	// cause is the underlying error
	cause error
}

// Error implements the error interface.
func (e *Errno) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("errno %d: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("errno %d: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Errno) Unwrap() error {
	return e.cause
}

// WithCause creates a new Errno with the given cause.
func (e *Errno) WithCause(cause error) *Errno {
	return &Errno{
		Code:    e.Code,
		Exit:    e.Exit,
		Message: e.Message,
		cause:   cause,
	}
}

// WithMessage creates a new Errno with a custom message.
func (e *Errno) WithMessage(msg string) *Errno {
	return &Errno{
		Code:    e.Code,
		Exit:    e.Exit,
		Message: msg,
		cause:   e.cause,
	}
}

// WithMessagef creates a new Errno with a formatted message.
func (e *Errno) WithMessagef(format string, args ...interface{}) *Errno {
	return &Errno{
		Code:    e.Code,
		Exit:    e.Exit,
		Message: fmt.Sprintf(format, args...),
		cause:   e.cause,
	}
}

// Is checks if this error matches the target error code.
func (e *Errno) Is(target error) bool {
	if t, ok := target.(*Errno); ok {
		return e.Code == t.Code
	}
	return false
}

// ExitStatus returns the exit status for err. Registered Errno values map to
// their category's exit status; anything else maps to 1.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	var e *Errno
	if errors.As(err, &e) && e.Exit != 0 {
		return e.Exit
	}
	return 1
}

// errnoRegistry stores all registered error codes for uniqueness validation.
var (
	errnoRegistry = make(map[int]*Errno)
	registryMu    sync.RWMutex
)

// Register registers an Errno and validates uniqueness.
// Panics if the code is already registered.
func Register(e *Errno) *Errno {
	registryMu.Lock()
	defer registryMu.Unlock()

	if existing, ok := errnoRegistry[e.Code]; ok {
		panic(fmt.Sprintf("errno code %d already registered: %s", e.Code, existing.Message))
	}
	errnoRegistry[e.Code] = e
	return e
}

// Lookup returns the registered Errno for a code.
func Lookup(code int) (*Errno, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	e, ok := errnoRegistry[code]
	return e, ok
}

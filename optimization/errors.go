package optimization

import (
	"errors"
	"fmt"
)

// Kind classifies optimization errors so callers can react to the
// failure class without string matching.
type Kind int

const (
	// KindUnknown is the zero value and carries no classification.
	KindUnknown Kind = iota
	// KindNotImplemented signals that a problem does not provide a
	// capability a solver asked for (e.g. a Hessian).
	KindNotImplemented
	// KindNotInitialized signals that a solver or driver was run
	// before a mandatory piece of setup was provided.
	KindNotInitialized
	// KindPotentialBug signals an internal inconsistency that should
	// never occur during correct use.
	KindPotentialBug
	// KindInvalidParameter signals an out-of-range tuning parameter.
	KindInvalidParameter
)

func (k Kind) String() string {
	switch k {
	case KindNotImplemented:
		return "not implemented"
	case KindNotInitialized:
		return "not initialized"
	case KindPotentialBug:
		return "potential bug"
	case KindInvalidParameter:
		return "invalid parameter"
	default:
		return "unknown"
	}
}

// Error represents an optimization error with context
// that can be wrapped with additional information.
type Error struct {
	// Kind classifies the error.
	Kind Kind
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Component is the component where the error occurred.
	Component string
	// Err is the underlying error that triggered this one, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var prefix string
	if e.Component != "" && e.Op != "" {
		prefix = fmt.Sprintf("%s: %s", e.Component, e.Op)
	} else if e.Component != "" {
		prefix = e.Component
	} else if e.Op != "" {
		prefix = e.Op
	}

	msg := e.Message
	if e.Kind != KindUnknown {
		msg = fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}

	if e.Err != nil {
		if prefix != "" {
			return fmt.Sprintf("%s: %s: %v", prefix, msg, e.Err)
		}
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}

	if prefix != "" {
		return fmt.Sprintf("%s: %s", prefix, msg)
	}
	return msg
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// WithComponent adds component context to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// NotImplementedError reports that the wrapped problem does not
// provide the named capability.
func NotImplementedError(capability string) *Error {
	return &Error{
		Kind:    KindNotImplemented,
		Message: fmt.Sprintf("problem does not implement %s", capability),
	}
}

// NotInitializedError reports missing mandatory setup.
func NotInitializedError(what string) *Error {
	return &Error{
		Kind:    KindNotInitialized,
		Message: what,
	}
}

// PotentialBugf reports an internal inconsistency.
func PotentialBugf(format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindPotentialBug,
		Message: fmt.Sprintf(format, args...),
	}
}

// InvalidParameterf reports an out-of-range tuning parameter.
func InvalidParameterf(format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindInvalidParameter,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError wraps an existing error with additional context.
// If err is nil, WrapError returns nil.
func WrapError(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Message: message,
		Err:     err,
	}
}

// WrapErrorf wraps an existing error with additional formatted context.
// If err is nil, WrapErrorf returns nil.
func WrapErrorf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// IsKind reports whether err (or any error it wraps) is an
// optimization Error of the given kind. Unkinded wrapping layers,
// such as the context the driver adds around solver errors, are
// skipped so the original classification stays visible.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind != KindUnknown {
			return e.Kind == kind
		}
		err = e.Err
	}
	return false
}

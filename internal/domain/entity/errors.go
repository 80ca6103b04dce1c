package entity

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedAction  = errors.New("unsupported action")
	ErrMalformedArguments = errors.New("malformed arguments")
	ErrElementNotFound    = errors.New("element not found")
	ErrNoActiveTarget     = errors.New("no active target")
	ErrTransport          = errors.New("transport failure")
)

type UnsupportedActionError struct {
	Code string
}

func (e *UnsupportedActionError) Error() string {
	return fmt.Sprintf("Unsupported action: %s", e.Code)
}

func (e *UnsupportedActionError) Is(target error) bool { return target == ErrUnsupportedAction }

type MalformedArgumentsError struct {
	Verb   string
	Reason string
}

func (e *MalformedArgumentsError) Error() string {
	return fmt.Sprintf("Malformed arguments for %s: %s", e.Verb, e.Reason)
}

// Is matches ErrUnsupportedAction too: a malformed call is a refinement of an
// unsupported one.
func (e *MalformedArgumentsError) Is(target error) bool {
	return target == ErrMalformedArguments || target == ErrUnsupportedAction
}

type ElementNotFoundError struct {
	Selector string
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("Element not found: %s", e.Selector)
}

func (e *ElementNotFoundError) Is(target error) bool { return target == ErrElementNotFound }

type NoActiveTargetError struct{}

func (e *NoActiveTargetError) Error() string { return "No active tab found" }

func (e *NoActiveTargetError) Is(target error) bool { return target == ErrNoActiveTarget }

// TransportError wraps a dispatch channel failure. It never crosses the
// sequencer boundary as an error; Failure turns it into a result.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

type ErrorKind string

const (
	KindUnsupportedAction  ErrorKind = "unsupported_action"
	KindMalformedArguments ErrorKind = "malformed_arguments"
	KindElementNotFound    ErrorKind = "element_not_found"
	KindNoActiveTarget     ErrorKind = "no_active_target"
	KindTransport          ErrorKind = "transport"
	KindExecution          ErrorKind = "execution"
)

func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrMalformedArguments):
		return KindMalformedArguments
	case errors.Is(err, ErrUnsupportedAction):
		return KindUnsupportedAction
	case errors.Is(err, ErrElementNotFound):
		return KindElementNotFound
	case errors.Is(err, ErrNoActiveTarget):
		return KindNoActiveTarget
	case errors.Is(err, ErrTransport):
		return KindTransport
	default:
		return KindExecution
	}
}

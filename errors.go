package codebytes

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced document does not exist. Get
	// itself reports a missing key as a nil document; callers that need an
	// error wrap this one.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a conditional create finds an item at the key.
	ErrAlreadyExists = errors.New("item already exists")
	// ErrImmutable is returned when an update changes an immutable attribute.
	ErrImmutable = errors.New("immutable attribute")
	// ErrValidation is returned when a document violates its schema.
	ErrValidation = errors.New("validation error")
	// ErrNotAuthorized is returned when the permission evaluator denies access.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrForbidden is returned when a write is blocked by the system-item guard.
	ErrForbidden = errors.New("forbidden")
	// ErrRemoteExecution is returned when the execution engine call fails.
	ErrRemoteExecution = errors.New("remote execution failed")
	// ErrCascade is returned when one or more grant records could not be reconciled.
	ErrCascade = errors.New("cascade failed")
	// ErrConditionFailed is returned by a Store when a conditional put is rejected.
	ErrConditionFailed = errors.New("condition failed")
)

// AttributeError reports a schema violation on a single attribute.
type AttributeError struct {
	Err       error  // ErrValidation or ErrImmutable
	Attribute string // offending attribute name
	Message   string
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err, e.Message)
}

func (e *AttributeError) Unwrap() error {
	return e.Err
}

func missingAttribute(name string) *AttributeError {
	return &AttributeError{
		Err:       ErrValidation,
		Attribute: name,
		Message:   fmt.Sprintf("missing value for required attribute '%s'", name),
	}
}

func unknownAttribute(name string) *AttributeError {
	return &AttributeError{
		Err:       ErrValidation,
		Attribute: name,
		Message:   fmt.Sprintf("unknown attribute '%s'", name),
	}
}

func immutableAttribute(name string) *AttributeError {
	return &AttributeError{
		Err:       ErrImmutable,
		Attribute: name,
		Message:   fmt.Sprintf("not allowed to change value for '%s'", name),
	}
}

// RemoteExecutionError wraps a failed call to the execution engine.
type RemoteExecutionError struct {
	Target  string // execution target identifier
	Payload []byte // engine error payload, if any
	Err     error
}

func (e *RemoteExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrRemoteExecution, e.Target, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", ErrRemoteExecution, e.Target, e.Payload)
}

func (e *RemoteExecutionError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrRemoteExecution, e.Err}
	}
	return []error{ErrRemoteExecution}
}

package resolver

import (
	"errors"
	"fmt"

	"github.com/nisimpson/codebytes"
)

// Error types reported to clients.
const (
	TypeBadRequest     = "BadRequest"
	TypeUnknownField   = "UnknownField"
	TypeNotFound       = "NotFound"
	TypeAlreadyExists  = "AlreadyExists"
	TypeValidation     = "ValidationError"
	TypeUnauthorized   = "Unauthorized"
	TypeForbidden      = "Forbidden"
	TypeExecution      = "ExecutionError"
	TypeCascade        = "CascadeError"
	TypeInternal       = "InternalError"
	internalErrMessage = "an internal error occurred"
)

var (
	errBadRequest   = errors.New("bad request")
	errUnknownField = errors.New("unknown field")
)

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// toError maps err to its client-facing form. The boolean is false for
// errors that carry no client-safe message.
func toError(err error) (*Error, bool) {
	var errorType string
	switch {
	case errors.Is(err, errBadRequest):
		errorType = TypeBadRequest
	case errors.Is(err, errUnknownField):
		errorType = TypeUnknownField
	case errors.Is(err, codebytes.ErrNotFound):
		errorType = TypeNotFound
	case errors.Is(err, codebytes.ErrAlreadyExists):
		errorType = TypeAlreadyExists
	case errors.Is(err, codebytes.ErrValidation), errors.Is(err, codebytes.ErrImmutable):
		errorType = TypeValidation
	case errors.Is(err, codebytes.ErrNotAuthorized):
		errorType = TypeUnauthorized
	case errors.Is(err, codebytes.ErrForbidden):
		errorType = TypeForbidden
	case errors.Is(err, codebytes.ErrRemoteExecution):
		errorType = TypeExecution
	case errors.Is(err, codebytes.ErrCascade):
		errorType = TypeCascade
	default:
		return &Error{Type: TypeInternal, Message: internalErrMessage}, false
	}
	return &Error{Type: errorType, Message: err.Error()}, true
}

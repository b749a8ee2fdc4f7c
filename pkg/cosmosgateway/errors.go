package cosmosgateway

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

// ErrorKind classifies a gateway failure for callers that need to branch
// without inspecting HTTP status codes themselves.
type ErrorKind string

const (
	// KindNotFound is returned when the requested item, container or account
	// does not exist (HTTP 404).
	KindNotFound ErrorKind = "not_found"
	// KindConflict is returned when a create collided with an existing
	// resource (HTTP 409).
	KindConflict ErrorKind = "conflict"
	// KindAuthFailure is terminal: the requested auth mode and, where
	// applicable, the fallback mode both failed.
	KindAuthFailure ErrorKind = "auth_failure"
	// KindValidation is returned before any network call when a required
	// parameter is missing or malformed.
	KindValidation ErrorKind = "validation"
	// KindOperationFailed is the catch-all for any other non-success status
	// from the remote service.
	KindOperationFailed ErrorKind = "operation_failed"
)

// OpError is the typed failure value for every gateway operation. Status and
// Code are taken from the transport's response status and service error code,
// never parsed out of error text.
type OpError struct {
	Kind    ErrorKind
	Status  int
	Code    string
	Message string
	cause   error
}

func (e *OpError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d, code %q): %s", e.Kind, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *OpError) Unwrap() error {
	return e.cause
}

func newValidationError(format string, args ...any) *OpError {
	return &OpError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// kindForStatus maps an HTTP status to the taxonomy. Authorization statuses
// stay KindOperationFailed here; only the negotiator promotes a failed
// negotiation to KindAuthFailure.
func kindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	default:
		return KindOperationFailed
	}
}

// wrapServiceError converts a transport error into an *OpError using the
// numeric response status. Errors that are already *OpError pass through
// unchanged; errors with no response attached become KindOperationFailed with
// status zero.
func wrapServiceError(err error, context string) *OpError {
	if err == nil {
		return nil
	}
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return &OpError{
			Kind:    kindForStatus(respErr.StatusCode),
			Status:  respErr.StatusCode,
			Code:    respErr.ErrorCode,
			Message: context,
			cause:   err,
		}
	}
	return &OpError{Kind: KindOperationFailed, Message: context, cause: err}
}

// StatusOf returns the HTTP status carried by err, or zero when none is.
func StatusOf(err error) int {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Status
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is a gateway NotFound failure.
func IsNotFound(err error) bool {
	var opErr *OpError
	return errors.As(err, &opErr) && opErr.Kind == KindNotFound
}

// IsConflict reports whether err is a gateway Conflict failure.
func IsConflict(err error) bool {
	var opErr *OpError
	return errors.As(err, &opErr) && opErr.Kind == KindConflict
}

// IsUnauthorized reports whether err carries an authorization status
// (401 or 403), whatever its kind.
func IsUnauthorized(err error) bool {
	s := StatusOf(err)
	return s == http.StatusUnauthorized || s == http.StatusForbidden
}

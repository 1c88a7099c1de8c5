//nolint:lll
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/zkceremony/coordinator/ceremony"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the caller's fault,
// and they return HTTP Status 400, 401, 403, 404, or 409, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX
// If you notice there's a gap DON'T fill in the gap, that code was used in the past for some error and
// shouldn't be reused.
var (
	ErrMalformedBody      = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMissingInput       = Error{Code: 40008, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("missing or malformed input")}
	ErrUnauthorized       = Error{Code: 40101, HTTPstatus: http.StatusUnauthorized, Err: fmt.Errorf("missing or invalid bearer token")}
	ErrForbidden          = Error{Code: 40301, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("caller role is not permitted to invoke this endpoint")}
	ErrCeremonyNotFound   = Error{Code: 40401, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("ceremony not found")}
	ErrCircuitNotFound    = Error{Code: 40402, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("circuit not found")}
	ErrDocumentNotFound   = Error{Code: 40403, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("referenced document not found")}
	ErrPrecondition       = Error{Code: 40901, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("precondition failed")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrWorkerFailure              = Error{Code: 50003, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("worker execution failed")}
	ErrStoreUnavailable           = Error{Code: 50301, HTTPstatus: http.StatusServiceUnavailable, Err: fmt.Errorf("store temporarily unavailable, retry")}
)

// mapCeremonyError translates the ceremony package's typed error taxonomy
// into an api.Error carrying the right HTTP status, following spec.md §7's
// error-handling policy.
func mapCeremonyError(err error) Error {
	var (
		inputErr    *ceremony.InputError
		notFoundErr *ceremony.NotFoundError
		precondErr  *ceremony.PreconditionError
		workerErr   *ceremony.WorkerError
		transientErr *ceremony.TransientStoreError
	)
	switch {
	case errors.As(err, &inputErr):
		return ErrMissingInput.WithErr(err)
	case errors.As(err, &notFoundErr):
		return ErrDocumentNotFound.WithErr(err)
	case errors.As(err, &precondErr):
		return ErrPrecondition.WithErr(err)
	case errors.As(err, &workerErr):
		return ErrWorkerFailure.WithErr(err)
	case errors.As(err, &transientErr):
		return ErrStoreUnavailable.WithErr(err)
	default:
		return ErrGenericInternalServerError.WithErr(err)
	}
}

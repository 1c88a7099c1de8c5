// Package ceremony implements the four control-plane handlers that
// coordinate a multi-party trusted-setup ceremony: the Queue Coordinator,
// the Contribution Verifier, the Refresher, and the Finalizer.
package ceremony

import "fmt"

// InputError signals missing or malformed input, including missing
// environment configuration. Non-retryable, surfaced to the caller
// verbatim.
type InputError struct{ Err error }

func (e *InputError) Error() string { return e.Err.Error() }
func (e *InputError) Unwrap() error { return e.Err }

func inputErrorf(format string, args ...any) error {
	return &InputError{Err: fmt.Errorf(format, args...)}
}

// NotFoundError signals a referenced document is absent. Fatal to the
// invocation; the store remains consistent because no writes occurred.
type NotFoundError struct{ Err error }

func (e *NotFoundError) Error() string { return e.Err.Error() }
func (e *NotFoundError) Unwrap() error { return e.Err }

func notFoundErrorf(format string, args ...any) error {
	return &NotFoundError{Err: fmt.Errorf(format, args...)}
}

// PreconditionError signals a violated precondition: e.g. zero or more
// than one pending partial contribution, or a participant not in an
// eligible state. Surfaced; no store mutation occurs.
type PreconditionError struct{ Err error }

func (e *PreconditionError) Error() string { return e.Err.Error() }
func (e *PreconditionError) Unwrap() error { return e.Err }

func preconditionErrorf(format string, args ...any) error {
	return &PreconditionError{Err: fmt.Errorf(format, args...)}
}

// WorkerError signals a start/probe/command failure. The Verifier treats
// such a contribution as invalid, stops the worker, and records an invalid
// contribution document; the participant advances through the normal
// invalid path. The Finalizer returns a WorkerError to its caller when an
// artifact cannot be downloaded or hashed.
type WorkerError struct{ Err error }

func (e *WorkerError) Error() string { return e.Err.Error() }
func (e *WorkerError) Unwrap() error { return e.Err }

// TransientStoreError signals a store conflict or unavailability that the
// caller's retry infrastructure should retry.
type TransientStoreError struct{ Err error }

func (e *TransientStoreError) Error() string { return e.Err.Error() }
func (e *TransientStoreError) Unwrap() error { return e.Err }

func transientStoreErrorf(format string, args ...any) error {
	return &TransientStoreError{Err: fmt.Errorf(format, args...)}
}

// Package providers wraps the external completion backends. The router
// picks the model; providers are agnostic to why a model was chosen.
package providers

import (
	"context"
	"errors"
	"fmt"
)

// Provider is the interface completion backends must implement.
type Provider interface {
	// Name returns the provider identifier (e.g. "openai").
	Name() string

	// Complete sends promptText to the given model and returns the
	// completion text. Failures are *BackendError values classified by
	// FaultKind; the caller decides how to surface them.
	Complete(ctx context.Context, model, promptText string) (string, error)
}

// FaultKind classifies backend failures. The router treats all kinds the
// same way (generic apology to the user, full detail in the log), but tests
// and operators care which one happened.
type FaultKind string

const (
	FaultTimeout   FaultKind = "timeout"
	FaultRejected  FaultKind = "rejected"
	FaultMalformed FaultKind = "malformed-response"
)

// BackendError is the explicit failure result of a Complete call.
type BackendError struct {
	Kind     FaultKind
	Provider string
	Err      error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// AsBackendError extracts a *BackendError from an error chain.
func AsBackendError(err error) (*BackendError, bool) {
	var be *BackendError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

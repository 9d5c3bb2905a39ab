package ca

import (
	"errors"
	"fmt"
)

// Sentinel errors for CA lifecycle states.
var (
	// ErrNotInitialized is returned when an operation needs a tier that has
	// no certificate on disk yet.
	ErrNotInitialized = errors.New("CA not initialized")

	// ErrInconsistentState is returned when exactly one of certificate and
	// private key exists. The store refuses to guess which artifact is
	// authoritative; the operator must repair or remove the tier directory.
	ErrInconsistentState = errors.New("inconsistent CA state")

	// ErrSignerNotLoaded is returned when a signing operation is attempted
	// before the issuer private key has been loaded.
	ErrSignerNotLoaded = errors.New("CA signer not loaded")
)

// PKIError wraps a failed CA operation with the operation name and, when
// one was already assigned, the serial involved.
type PKIError struct {
	Op     string
	Serial string
	Err    error
}

func (e *PKIError) Error() string {
	if e.Serial != "" {
		return fmt.Sprintf("%s (serial %s): %v", e.Op, e.Serial, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PKIError) Unwrap() error {
	return e.Err
}

// ValidationError reports a request that was rejected before any artifact
// was written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SigningError wraps a failure inside the issuance pipeline, tagged with the
// stage that failed (generate-key, create-csr, parse-csr, sign, encode).
type SigningError struct {
	Stage string
	Err   error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("signing failed at %s: %v", e.Stage, e.Err)
}

func (e *SigningError) Unwrap() error {
	return e.Err
}

func signingErr(stage string, err error) error {
	return &SigningError{Stage: stage, Err: err}
}

// StateError wraps ErrInconsistentState with the artifact detail that
// triggered it.
type StateError struct {
	Tier   Tier
	Detail string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s CA state is inconsistent: %s", e.Tier, e.Detail)
}

func (e *StateError) Unwrap() error {
	return ErrInconsistentState
}

package interfaces

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrGeneration is returned when the entropy source cannot produce key material.
	// It is fatal and must not be retried.
	ErrGeneration = errors.New("key generation failed")

	// ErrNotFound is returned for missing keys and subscriptions.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a (subscriberId, uniqueKeyId) pair already exists.
	ErrConflict = errors.New("conflict")

	// ErrDecryption is returned when a registry challenge cannot be decrypted
	// with the derived key. Callers must fail closed.
	ErrDecryption = errors.New("challenge decryption failed")

	// ErrNetwork is returned when the registry cannot be reached.
	ErrNetwork = errors.New("registry unreachable")

	// ErrTimedOut is returned when the registry did not answer within the deadline.
	// Retrying is left to the caller.
	ErrTimedOut = errors.New("registry call timed out")

	// ErrValidation is returned for malformed requests, before anything is signed.
	ErrValidation = errors.New("validation failed")
)

// RegistryCallError wraps a transport level failure of a registry call with
// enough context to tell a timeout from an unreachable registry.
type RegistryCallError struct {
	Endpoint    string
	Environment Environment
	Elapsed     time.Duration
	Err         error
}

func (e *RegistryCallError) Error() string {
	return fmt.Sprintf("%s (%s) after %s: %v", e.Endpoint, e.Environment, e.Elapsed.Round(time.Millisecond), e.Err)
}

func (e *RegistryCallError) Unwrap() error {
	return e.Err
}

// RegistryRejectedError carries a registry error response verbatim.
type RegistryRejectedError struct {
	Endpoint    string
	Environment Environment
	StatusCode  int
	Body        []byte
}

func (e *RegistryRejectedError) Error() string {
	return fmt.Sprintf("registry rejected %s (%s) with status %d: %s", e.Endpoint, e.Environment, e.StatusCode, string(e.Body))
}

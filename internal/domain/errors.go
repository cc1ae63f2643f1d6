package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidItem signals an item that fails validation.
	ErrInvalidItem = errors.New("invalid item")
	// ErrUnknownNamespace signals a namespace with no configuration.
	ErrUnknownNamespace = errors.New("unknown namespace")
	// ErrFetchFailed signals that the catalog backend could not serve a search.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrSuperseded signals that a newer search in the same namespace replaced this one.
	ErrSuperseded = errors.New("search superseded")
)

// FetchError wraps ErrFetchFailed with the namespace and signature of the failed search.
// Fetch failures are retryable and never cached.
type FetchError struct {
	Namespace string
	Signature string
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: namespace %q signature %s: %v", ErrFetchFailed.Error(), e.Namespace, e.Signature, e.Err)
}

func (e *FetchError) Unwrap() []error { return []error{ErrFetchFailed, e.Err} }

// Retryable reports whether the caller may retry the search.
func (e *FetchError) Retryable() bool { return true }

// NewFetchError creates a fetch failure.
func NewFetchError(namespace, signature string, err error) error {
	return &FetchError{Namespace: namespace, Signature: signature, Err: err}
}

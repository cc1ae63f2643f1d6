package chi

import (
	"context"
	"errors"
	"net/http"

	"github.com/kailas-cloud/catalogq/internal/domain"
)

// ErrorCode classifies an API error for clients.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeNotFound         ErrorCode = "not_found"
	CodeItemNotFound     ErrorCode = "item_not_found"
	CodeUnknownNamespace ErrorCode = "unknown_namespace"
	CodeValidationFailed ErrorCode = "validation_failed"
	CodeFetchFailed      ErrorCode = "fetch_failed"
	CodeSuperseded       ErrorCode = "superseded"
	CodeTimeout          ErrorCode = "timeout"
	CodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		fetchErrorHandler,
		sentinelHandler(domain.ErrUnknownNamespace, http.StatusNotFound, CodeUnknownNamespace),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeItemNotFound),
		sentinelHandler(domain.ErrInvalidItem, http.StatusBadRequest, CodeValidationFailed),
		retryableHandler(domain.ErrSuperseded, http.StatusConflict, CodeSuperseded),
		retryableHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTimeout),
	}
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func retryableHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeJSON(w, status, ErrorResponse{Code: code, Message: msg, Retryable: true})
		return true
	}
}

// fetchErrorHandler reports a failed backend fetch with its namespace.
func fetchErrorHandler(w http.ResponseWriter, err error, msg string) bool {
	var fe *domain.FetchError
	if !errors.As(err, &fe) {
		return false
	}
	writeJSON(w, http.StatusBadGateway, map[string]any{
		"code":      CodeFetchFailed,
		"message":   msg,
		"retryable": fe.Retryable(),
		"namespace": fe.Namespace,
	})
	return true
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	var fe *domain.FetchError
	if errors.As(err, &fe) {
		return domain.ErrFetchFailed.Error()
	}
	sentinels := []error{
		domain.ErrUnknownNamespace,
		domain.ErrNotFound,
		domain.ErrSuperseded,
		context.DeadlineExceeded,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	// Validation failures carry the offending attribute and are safe to echo.
	if errors.Is(err, domain.ErrInvalidItem) {
		return err.Error()
	}
	return "internal error"
}

// errorBody describes err the way a search state does, or nil.
func errorBody(err error) *ErrorResponse {
	if err == nil {
		return nil
	}
	code := CodeInternalError
	switch {
	case errors.As(err, new(*domain.FetchError)):
		code = CodeFetchFailed
	case errors.Is(err, domain.ErrSuperseded):
		code = CodeSuperseded
	case errors.Is(err, context.DeadlineExceeded):
		code = CodeTimeout
	case errors.Is(err, domain.ErrUnknownNamespace):
		code = CodeUnknownNamespace
	}
	return &ErrorResponse{Code: code, Message: safeDomainMessage(err)}
}

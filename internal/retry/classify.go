package retry

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"stridesync/internal/remote"
)

// Kind is the failure taxonomy entry a transport error maps to.
type Kind string

const (
	KindNetworkUnavailable Kind = "network_unavailable"
	KindBackendUnavailable Kind = "backend_unavailable"
	KindQuotaExceeded      Kind = "quota_exceeded"
	KindNotFound           Kind = "not_found"
	KindPermissionDenied   Kind = "permission_denied"
	KindServerError        Kind = "server_error"
	KindUnknown            Kind = "unknown"
)

// Error is a classified sync failure. Retryable failures are transient and
// eligible for another attempt; the rest are operator-actionable and
// retrying them only wastes battery and bandwidth.
type Error struct {
	Kind      Kind
	Retryable bool
	cause     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

// NewError builds a pre-classified failure; Classify passes it through
// unchanged. For call sites that know the verdict up front, like a
// join-by-code miss that must not be retried.
func NewError(kind Kind, retryable bool, cause error) *Error {
	return &Error{Kind: kind, Retryable: retryable, cause: cause}
}

// Classify maps a transport-level failure into the taxonomy. Anything
// unrecognized fails open toward retry so a transient outage is never
// mistaken for a permanent one.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, remote.ErrAccountUnavailable) {
		return &Error{Kind: KindBackendUnavailable, Retryable: false, cause: err}
	}

	var statusErr *remote.StatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(statusErr)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Error{Kind: KindNetworkUnavailable, Retryable: true, cause: err}
	}

	return &Error{Kind: KindUnknown, Retryable: true, cause: err}
}

func classifyStatus(err *remote.StatusError) *Error {
	switch err.Code {
	case http.StatusUnauthorized:
		return &Error{Kind: KindBackendUnavailable, Retryable: false, cause: err}
	case http.StatusForbidden:
		return &Error{Kind: KindPermissionDenied, Retryable: false, cause: err}
	case http.StatusNotFound:
		return &Error{Kind: KindNotFound, Retryable: false, cause: err}
	case http.StatusRequestEntityTooLarge, http.StatusInsufficientStorage:
		return &Error{Kind: KindQuotaExceeded, Retryable: false, cause: err}
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return &Error{Kind: KindServerError, Retryable: true, cause: err}
	default:
		return &Error{Kind: KindUnknown, Retryable: true, cause: err}
	}
}

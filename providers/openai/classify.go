package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"

	"github.com/wildlens/wildlens"
)

// classifyTransportFailure maps a no-response failure (the request never
// produced an HTTP status) to a classified error. Everything here is
// retryable: the service was never reached, or never answered.
func classifyTransportFailure(err error) *wildlens.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return wildlens.NewTimeoutError("request to identification service timed out", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return wildlens.NewTimeoutError("request to identification service timed out", err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return wildlens.NewNetworkError("cannot resolve identification service host", err)
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return wildlens.NewNetworkError("identification service refused the connection", err)
	}

	return wildlens.NewNetworkError("network failure reaching identification service", err)
}

// classifyStatus maps a non-2xx HTTP response to a classified error:
//
//	400            -> validation_error, not retryable
//	401, 403       -> auth_error, not retryable
//	429            -> rate_limit_error, retryable (Retry-After surfaced)
//	500, 502, 503  -> api_error, retryable
//	504            -> timeout_error, retryable
//	anything else  -> unknown_error, retryable iff status >= 500
func classifyStatus(status int, body []byte, header http.Header) *wildlens.Error {
	msg, code := apiErrorMessage(status, body)

	switch status {
	case http.StatusBadRequest:
		return wildlens.NewValidationError(msg, code)
	case http.StatusUnauthorized, http.StatusForbidden:
		return wildlens.NewAuthError(msg, code)
	case http.StatusTooManyRequests:
		if retryAfter := header.Get("Retry-After"); retryAfter != "" {
			msg = fmt.Sprintf("%s (retry after %s)", msg, retryAfter)
		}
		return wildlens.NewRateLimitError(msg, code)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return wildlens.NewAPIError(msg, code)
	case http.StatusGatewayTimeout:
		return wildlens.NewTimeoutError(msg, nil)
	default:
		return wildlens.NewUnknownError(msg, code, status >= 500)
	}
}

package errorutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// NetworkError represents a failed request to a remote API. Transport failures,
// timeouts, non-2xx responses and bodies that are not JSON all surface as one.
type NetworkError struct {
	Operation  string        // The operation that failed (e.g., "geocoding request")
	URL        string        // The URL that was being accessed
	StatusCode int           // HTTP status code (if a response was received)
	Timeout    time.Duration // Configured timeout when the failure was a timeout
	Underlying error         // The underlying error
	Transient  bool          // Failure looks temporary (timeout, DNS, 5xx); logged at warn
}

func (e *NetworkError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s failed for %s: HTTP %d: %v", e.Operation, e.URL, e.StatusCode, e.Underlying)
	}
	return fmt.Sprintf("%s failed for %s: %v", e.Operation, e.URL, e.Underlying)
}

func (e *NetworkError) Unwrap() error {
	return e.Underlying
}

// IsTimeout reports whether the request ran out of time
func (e *NetworkError) IsTimeout() bool {
	return isTimeoutError(e.Underlying)
}

// NewNetworkError wraps a transport-level failure
func NewNetworkError(operation, url string, err error) *NetworkError {
	return &NetworkError{
		Operation:  operation,
		URL:        url,
		Underlying: err,
		Transient:  isTransientError(err, 0),
	}
}

// NewTimeoutError wraps a transport failure and records the timeout that applied
func NewTimeoutError(operation, url string, timeout time.Duration, err error) *NetworkError {
	netErr := NewNetworkError(operation, url, err)
	if netErr.IsTimeout() {
		netErr.Timeout = timeout
	}
	return netErr
}

// NewHTTPStatusError builds a NetworkError for a non-successful HTTP response
func NewHTTPStatusError(operation, url string, statusCode int, body string) *NetworkError {
	msg := http.StatusText(statusCode)
	if body = strings.TrimSpace(body); body != "" {
		if len(body) > 200 {
			body = body[:200] + "..."
		}
		msg = fmt.Sprintf("%s: %s", msg, body)
	}

	return &NetworkError{
		Operation:  operation,
		URL:        url,
		StatusCode: statusCode,
		Underlying: errors.New(msg),
		Transient:  isTransientError(nil, statusCode),
	}
}

// LogNetworkError logs a network error with structured context and returns it
func LogNetworkError(logger *slog.Logger, netErr *NetworkError) *NetworkError {
	if logger == nil || netErr == nil {
		return netErr
	}

	attrs := []any{
		slog.String("operation", netErr.Operation),
		slog.String("url", netErr.URL),
		slog.String("error", netErr.Underlying.Error()),
		slog.Bool("transient", netErr.Transient),
	}
	if netErr.StatusCode > 0 {
		attrs = append(attrs, slog.Int("status_code", netErr.StatusCode))
	}
	if netErr.Timeout > 0 {
		attrs = append(attrs, slog.Duration("timeout", netErr.Timeout))
	}

	level := slog.LevelError
	if netErr.Transient {
		level = slog.LevelWarn
	}

	logger.Log(context.Background(), level, "Network operation failed", attrs...)
	return netErr
}

// isTransientError reports whether an error or status code is likely temporary
func isTransientError(err error, statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}

	if err == nil {
		return false
	}
	return isTimeoutError(err) || isDNSError(err) || isConnectionRefusedError(err)
}

// isTimeoutError checks for net timeouts and context deadlines
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isDNSError checks if an error is a DNS resolution error
func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// isConnectionRefusedError checks if the remote end refused the connection
func isConnectionRefusedError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

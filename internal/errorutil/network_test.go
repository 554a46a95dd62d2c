package errorutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"
)

func TestNewNetworkErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
		timeout   bool
	}{
		{"deadline exceeded", fmt.Errorf("get: %w", context.DeadlineExceeded), true, true},
		{"dns failure", &net.DNSError{Err: "no such host", Name: "nowhere.invalid"}, true, false},
		{"connection refused", errors.New("dial tcp 127.0.0.1:1: connect: connection refused"), true, false},
		{"plain failure", errors.New("unexpected EOF"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			netErr := NewTimeoutError("geocoding request", "https://example.test", 10*time.Second, tt.err)
			if netErr.Transient != tt.transient {
				t.Errorf("Transient = %v, want %v", netErr.Transient, tt.transient)
			}
			if netErr.IsTimeout() != tt.timeout {
				t.Errorf("IsTimeout() = %v, want %v", netErr.IsTimeout(), tt.timeout)
			}
			if tt.timeout && netErr.Timeout != 10*time.Second {
				t.Errorf("Timeout = %v, want 10s", netErr.Timeout)
			}
			if !errors.Is(netErr, tt.err) {
				t.Error("NetworkError doesn't unwrap to the underlying error")
			}
		})
	}
}

func TestNewHTTPStatusError(t *testing.T) {
	netErr := NewHTTPStatusError("forecast request", "https://example.test/v1/forecast", 503, "  maintenance  ")

	if netErr.StatusCode != 503 {
		t.Errorf("StatusCode = %d, want 503", netErr.StatusCode)
	}
	if !netErr.Transient {
		t.Error("503 should be transient")
	}
	if !strings.Contains(netErr.Error(), "HTTP 503: Service Unavailable: maintenance") {
		t.Errorf("unexpected message: %v", netErr)
	}

	notFound := NewHTTPStatusError("forecast request", "https://example.test", 400, strings.Repeat("x", 300))
	if notFound.Transient {
		t.Error("400 should not be transient")
	}
	if !strings.HasSuffix(notFound.Underlying.Error(), "...") {
		t.Error("long bodies should be truncated")
	}
}

func TestLogNetworkError(t *testing.T) {
	var logOutput strings.Builder
	logger := slog.New(slog.NewTextHandler(&logOutput, nil))

	netErr := NewHTTPStatusError("geocoding request", "https://example.test", 500, "")
	if LogNetworkError(logger, netErr) != netErr {
		t.Error("LogNetworkError should return its argument")
	}

	logStr := logOutput.String()
	if !strings.Contains(logStr, "status_code=500") {
		t.Errorf("missing status code in log: %s", logStr)
	}
	if !strings.Contains(logStr, "level=WARN") {
		t.Errorf("transient errors should log at WARN: %s", logStr)
	}
}

func TestValidationHelpers(t *testing.T) {
	if err := ValidateRequired("city", "   "); err == nil || err.Rule != "required" {
		t.Errorf("ValidateRequired(blank) = %v", err)
	}
	if err := ValidateCoordinate("latitude", 90.5, true); err == nil {
		t.Error("latitude 90.5 should be rejected")
	}
	if err := ValidateCoordinate("longitude", -180, false); err != nil {
		t.Errorf("longitude -180 should be accepted: %v", err)
	}
	if err := ValidateURL("url", "ftp://example.test"); err == nil {
		t.Error("non-http URL should be rejected")
	}
	if err := ValidateURL("url", "https://api.open-meteo.com"); err != nil {
		t.Errorf("valid URL rejected: %v", err)
	}
	if err := ValidateEnum("level", "WARN", []string{"debug", "info", "warn"}); err != nil {
		t.Errorf("enum should be case-insensitive: %v", err)
	}

	var errs ValidationErrors
	errs.Append(nil)
	if errs.ErrorOrNil() != nil {
		t.Error("empty collection should be nil")
	}
	errs.Append(ValidateIntRange("timeout_seconds", 0, 1, 120))
	errs.Append(ValidateIntRange("max_tokens", 5000, 50, 4096))
	if !strings.Contains(errs.Error(), "validation failed with 2 errors") {
		t.Errorf("unexpected aggregate message: %v", errs.Error())
	}
}

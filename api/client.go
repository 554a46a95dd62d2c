package api

import (
	"errors"
	"time"

	"github.com/go-resty/resty/v2"

	"asutenki/internal/logger"
)

const (
	// Default timeout for a single Open-Meteo request
	defaultTimeout = 10 * time.Second

	// User-Agent for API requests
	userAgent = "Asutenki/1.0"
)

var (
	// ErrEmptyCity is returned when a lookup is attempted with a blank city name
	ErrEmptyCity = errors.New("city name is empty")

	// ErrLocationNotFound is returned when geocoding yields no results
	ErrLocationNotFound = errors.New("location not found")

	// ErrIncompleteResponse is returned when a response parses as JSON but lacks
	// fields the lookup depends on
	ErrIncompleteResponse = errors.New("incomplete API response")
)

// newRestyClient builds the HTTP client shared by the Open-Meteo clients.
// Requests are attempted exactly once.
func newRestyClient(baseURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	// AIDEV-NOTE: resty gives us base URLs, query encoding and request hooks; retries stay disabled
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout).
		SetRetryCount(0)

	client.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
		headers := make(map[string]string)
		for key, values := range req.Header {
			if len(values) > 0 {
				headers[key] = values[0]
			}
		}
		logger.LogAPIRequest(req.Method, req.URL, headers)
		return nil
	})

	client.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		logger.LogAPIResponse(resp.Request.Method, resp.Request.URL, resp.StatusCode(), resp.Time().String(), len(resp.Body()))
		return nil
	})

	return client
}

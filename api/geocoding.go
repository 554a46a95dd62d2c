package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"asutenki/internal/errorutil"
	"asutenki/internal/logger"
)

const searchEndpoint = "/v1/search"

// Location is a geocoded place
type Location struct {
	Name      string  // Resolved name, or the query when the API omits it
	Country   string  // Country name in the requested language, may be empty
	Latitude  float64 // Decimal degrees, -90..90
	Longitude float64 // Decimal degrees, -180..180
}

// String formats the location the way it is shown to users
func (l Location) String() string {
	if l.Country == "" {
		return l.Name
	}
	return fmt.Sprintf("%s, %s", l.Name, l.Country)
}

// GeocodingConfig configures a GeocodingClient
type GeocodingConfig struct {
	BaseURL  string
	Language string
	Timeout  time.Duration
}

// GeocodingClient resolves city names through the Open-Meteo geocoding API
type GeocodingClient struct {
	client   *resty.Client
	language string
	timeout  time.Duration
	url      string
}

// NewGeocodingClient creates a client for the given endpoint
func NewGeocodingClient(cfg GeocodingConfig) *GeocodingClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	base := strings.TrimRight(cfg.BaseURL, "/")

	return &GeocodingClient{
		client:   newRestyClient(base, cfg.Timeout),
		language: cfg.Language,
		timeout:  cfg.Timeout,
		url:      base + searchEndpoint,
	}
}

// Resolve looks up a city and returns the first match. It returns
// ErrLocationNotFound when the API has no result for the name and a
// *errorutil.NetworkError when the request itself fails.
func (g *GeocodingClient) Resolve(ctx context.Context, city string) (*Location, error) {
	if err := errorutil.ValidateRequired("city", city); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyCity, err)
	}

	complete := logger.LogOperationStart("geocode", map[string]any{
		"city":     city,
		"language": g.language,
	})

	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"name":     city,
			"count":    "1",
			"language": g.language,
			"format":   "json",
		}).
		Get(searchEndpoint)
	if err != nil {
		netErr := errorutil.NewTimeoutError("geocoding request", g.url, g.timeout, err)
		complete(errorutil.LogNetworkError(logger.Get().Logger, netErr))
		return nil, netErr
	}

	if !resp.IsSuccess() {
		netErr := errorutil.NewHTTPStatusError("geocoding request", g.url, resp.StatusCode(), resp.String())
		complete(errorutil.LogNetworkError(logger.Get().Logger, netErr))
		return nil, netErr
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		netErr := errorutil.NewNetworkError("geocoding request", g.url, errors.New("response body is not valid JSON"))
		complete(errorutil.LogNetworkError(logger.Get().Logger, netErr))
		return nil, netErr
	}

	location, err := parseGeocodingResult(body, city)
	complete(err)
	if err != nil {
		return nil, err
	}

	logger.Debug("Geocoded %q to %s (%.4f, %.4f)", city, location, location.Latitude, location.Longitude)
	return location, nil
}

// parseGeocodingResult extracts the first result from a search response body
func parseGeocodingResult(body []byte, query string) (*Location, error) {
	first := gjson.GetBytes(body, "results.0")
	if !first.Exists() {
		return nil, ErrLocationNotFound
	}

	location := &Location{
		Name:    query,
		Country: "",
	}
	if name := first.Get("name"); name.Exists() && name.Type != gjson.Null {
		location.Name = name.String()
	}
	if country := first.Get("country"); country.Exists() && country.Type != gjson.Null {
		location.Country = country.String()
	}

	lat := first.Get("latitude")
	lon := first.Get("longitude")
	if lat.Type != gjson.Number || lon.Type != gjson.Number {
		return nil, fmt.Errorf("%w: geocoding result for %q has no coordinates", ErrIncompleteResponse, query)
	}
	location.Latitude = lat.Float()
	location.Longitude = lon.Float()

	if err := errorutil.ValidateCoordinate("latitude", location.Latitude, true); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompleteResponse, err)
	}
	if err := errorutil.ValidateCoordinate("longitude", location.Longitude, false); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompleteResponse, err)
	}

	return location, nil
}

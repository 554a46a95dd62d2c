package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"asutenki/internal/errorutil"
	"asutenki/internal/logger"
)

const (
	forecastEndpoint = "/v1/forecast"

	// RequiredDays is the number of leading daily entries (today, tomorrow)
	// that must be complete
	RequiredDays = 2

	currentFields = "temperature_2m,relative_humidity_2m,weather_code,wind_speed_10m"
	dailyFields   = "weather_code,temperature_2m_max,temperature_2m_min,precipitation_sum"
)

// Current holds the current conditions at a location
type Current struct {
	TemperatureC float64
	HumidityPct  float64
	WindSpeedMs  float64
	WeatherCode  int
}

// Day holds one day of the daily forecast
type Day struct {
	Date            string // ISO-8601 date in the requested timezone
	WeatherCode     int
	TempMaxC        float64
	TempMinC        float64
	PrecipitationMm float64
}

// Forecast is the current conditions plus the daily series, index 0 being today
type Forecast struct {
	Current Current
	Daily   []Day
}

// ForecastConfig configures a ForecastClient
type ForecastConfig struct {
	BaseURL  string
	Timezone string
	Timeout  time.Duration
}

// ForecastClient fetches forecasts from the Open-Meteo forecast API
type ForecastClient struct {
	client   *resty.Client
	timezone string
	timeout  time.Duration
	url      string
}

// NewForecastClient creates a client for the given endpoint
func NewForecastClient(cfg ForecastConfig) *ForecastClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	base := strings.TrimRight(cfg.BaseURL, "/")

	return &ForecastClient{
		client:   newRestyClient(base, cfg.Timeout),
		timezone: cfg.Timezone,
		timeout:  cfg.Timeout,
		url:      base + forecastEndpoint,
	}
}

// forecastResponse mirrors the subset of the Open-Meteo response we request.
// Pointers distinguish absent fields from zero values.
type forecastResponse struct {
	CurrentUnits map[string]string `json:"current_units"`
	Current      *struct {
		Temperature *float64 `json:"temperature_2m"`
		Humidity    *float64 `json:"relative_humidity_2m"`
		WeatherCode *int     `json:"weather_code"`
		WindSpeed   *float64 `json:"wind_speed_10m"`
	} `json:"current"`
	Daily *struct {
		Time          []string   `json:"time"`
		WeatherCode   []*int     `json:"weather_code"`
		TempMax       []*float64 `json:"temperature_2m_max"`
		TempMin       []*float64 `json:"temperature_2m_min"`
		Precipitation []*float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

// Forecast fetches current conditions and the daily forecast for a coordinate.
// A single attempt is made; there is no partial result on failure.
func (f *ForecastClient) Forecast(ctx context.Context, latitude, longitude float64) (*Forecast, error) {
	if err := errorutil.ValidateCoordinate("latitude", latitude, true); err != nil {
		return nil, err
	}
	if err := errorutil.ValidateCoordinate("longitude", longitude, false); err != nil {
		return nil, err
	}

	complete := logger.LogOperationStart("forecast", map[string]any{
		"latitude":  latitude,
		"longitude": longitude,
		"timezone":  f.timezone,
	})

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"latitude":  strconv.FormatFloat(latitude, 'f', -1, 64),
			"longitude": strconv.FormatFloat(longitude, 'f', -1, 64),
			"current":   currentFields,
			"daily":     dailyFields,
			"timezone":  f.timezone,
		}).
		Get(forecastEndpoint)
	if err != nil {
		netErr := errorutil.NewTimeoutError("forecast request", f.url, f.timeout, err)
		complete(errorutil.LogNetworkError(logger.Get().Logger, netErr))
		return nil, netErr
	}

	if !resp.IsSuccess() {
		netErr := errorutil.NewHTTPStatusError("forecast request", f.url, resp.StatusCode(), resp.String())
		complete(errorutil.LogNetworkError(logger.Get().Logger, netErr))
		return nil, netErr
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		netErr := errorutil.NewNetworkError("forecast request", f.url, errors.New("response body is not valid JSON"))
		complete(errorutil.LogNetworkError(logger.Get().Logger, netErr))
		return nil, netErr
	}

	// Valid JSON of the wrong shape is an incomplete response
	var raw forecastResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		err = fmt.Errorf("%w: %v", ErrIncompleteResponse, err)
		complete(err)
		return nil, err
	}

	forecast, err := raw.toForecast()
	complete(err)
	if err != nil {
		return nil, err
	}
	return forecast, nil
}

// toForecast validates the decoded response and converts it
func (r *forecastResponse) toForecast() (*Forecast, error) {
	if r.Current == nil {
		return nil, fmt.Errorf("%w: missing \"current\" block", ErrIncompleteResponse)
	}
	c := r.Current
	if c.Temperature == nil || c.Humidity == nil || c.WeatherCode == nil || c.WindSpeed == nil {
		return nil, fmt.Errorf("%w: \"current\" block lacks a requested field", ErrIncompleteResponse)
	}

	if r.Daily == nil {
		return nil, fmt.Errorf("%w: missing \"daily\" block", ErrIncompleteResponse)
	}
	d := r.Daily
	n := len(d.Time)
	if len(d.WeatherCode) != n || len(d.TempMax) != n || len(d.TempMin) != n || len(d.Precipitation) != n {
		return nil, fmt.Errorf("%w: daily arrays are not aligned", ErrIncompleteResponse)
	}

	forecast := &Forecast{
		Current: Current{
			TemperatureC: *c.Temperature,
			HumidityPct:  *c.Humidity,
			WindSpeedMs:  ConvertWindSpeed(*c.WindSpeed, r.CurrentUnits["wind_speed_10m"]),
			WeatherCode:  *c.WeatherCode,
		},
		Daily: make([]Day, 0, n),
	}

	for i := 0; i < n; i++ {
		if d.WeatherCode[i] == nil || d.TempMax[i] == nil || d.TempMin[i] == nil || d.Precipitation[i] == nil {
			if i < RequiredDays {
				return nil, fmt.Errorf("%w: daily values missing for %s", ErrIncompleteResponse, d.Time[i])
			}
			// Later days are not shown; the series ends at the first gap
			logger.Debug("Forecast series truncated at %s: daily values missing", d.Time[i])
			break
		}
		forecast.Daily = append(forecast.Daily, Day{
			Date:            d.Time[i],
			WeatherCode:     *d.WeatherCode[i],
			TempMaxC:        *d.TempMax[i],
			TempMinC:        *d.TempMin[i],
			PrecipitationMm: *d.Precipitation[i],
		})
	}

	return forecast, nil
}

// ConvertWindSpeed converts a wind speed reported in the given Open-Meteo unit to m/s.
// Unknown or empty units are assumed to be m/s already.
func ConvertWindSpeed(speed float64, unit string) float64 {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "km/h", "kmh":
		return speed / 3.6
	case "mp/h", "mph":
		return speed * 0.44704
	case "kn", "knots":
		return speed * 0.514444
	default:
		return speed
	}
}

package lookup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"asutenki/api"
	"asutenki/internal/advisory"
	"asutenki/internal/errorutil"
)

type mockGeocoder struct {
	location *api.Location
	err      error
	calls    []string
}

func (m *mockGeocoder) Resolve(ctx context.Context, city string) (*api.Location, error) {
	m.calls = append(m.calls, city)
	return m.location, m.err
}

type mockForecaster struct {
	forecast *api.Forecast
	err      error
	calls    int
	lat, lon float64
}

func (m *mockForecaster) Forecast(ctx context.Context, latitude, longitude float64) (*api.Forecast, error) {
	m.calls++
	m.lat, m.lon = latitude, longitude
	return m.forecast, m.err
}

func tokyo() *api.Location {
	return &api.Location{Name: "東京", Country: "日本", Latitude: 35.6895, Longitude: 139.69171}
}

func forecastWithDays(n int) *api.Forecast {
	f := &api.Forecast{
		Current: api.Current{TemperatureC: 18.4, HumidityPct: 72, WindSpeedMs: 3, WeatherCode: 3},
	}
	for i := 0; i < n; i++ {
		f.Daily = append(f.Daily, api.Day{
			Date:            fmt.Sprintf("2026-10-%02d", 16+i),
			WeatherCode:     61 + i,
			TempMaxC:        20 + float64(i),
			TempMinC:        10,
			PrecipitationMm: 0,
		})
	}
	return f
}

func TestRunReady(t *testing.T) {
	forecast := forecastWithDays(7)
	forecast.Daily[0].PrecipitationMm = 6
	forecast.Daily[1].TempMaxC = 35
	forecast.Daily[1].TempMinC = 0

	geo := &mockGeocoder{location: tokyo()}
	fc := &mockForecaster{forecast: forecast}

	result := NewPipeline(geo, fc).Run(context.Background(), "  Tokyo ")

	if !result.OK() {
		t.Fatalf("Expected ready result, got state %s failure %+v", result.State, result.Failure)
	}
	expectedTrace := []State{StateIdle, StateAwaitingGeocode, StateAwaitingForecast, StateReady}
	if !reflect.DeepEqual(result.Trace, expectedTrace) {
		t.Errorf("Expected trace %v, got %v", expectedTrace, result.Trace)
	}
	if len(geo.calls) != 1 || geo.calls[0] != "Tokyo" {
		t.Errorf("Expected one geocode call with trimmed city, got %v", geo.calls)
	}
	if fc.calls != 1 || fc.lat != 35.6895 || fc.lon != 139.69171 {
		t.Errorf("Expected forecast for resolved coordinates, got %d calls (%f, %f)", fc.calls, fc.lat, fc.lon)
	}

	report := result.Report
	if report.Query != "Tokyo" || report.Location.Name != "東京" {
		t.Errorf("Unexpected report header: %q %+v", report.Query, report.Location)
	}
	if report.Current.Weather.String() != "☁️ 曇り" || report.Current.TemperatureC != 18.4 {
		t.Errorf("Unexpected current view: %+v", report.Current)
	}

	if len(report.Days) != 2 {
		t.Fatalf("Expected exactly 2 days, got %d", len(report.Days))
	}
	if report.Days[0].Label != "今日" || report.Days[0].Day.Date != "2026-10-16" {
		t.Errorf("Unexpected first day: %+v", report.Days[0])
	}
	if report.Days[1].Label != "明日" || report.Days[1].Day.Date != "2026-10-17" {
		t.Errorf("Unexpected second day: %+v", report.Days[1])
	}
	if report.Days[0].Weather.String() != "🌧️ 小雨" {
		t.Errorf("Expected 🌧️ 小雨 for today, got %s", report.Days[0].Weather)
	}
	if len(report.Days[0].Advisories) != 1 || report.Days[0].Advisories[0].Kind != advisory.CarryUmbrella {
		t.Errorf("Expected umbrella advisory today, got %+v", report.Days[0].Advisories)
	}
	if len(report.Days[1].Advisories) != 2 ||
		report.Days[1].Advisories[0].Kind != advisory.HeatWarning ||
		report.Days[1].Advisories[1].Kind != advisory.ColdWarning {
		t.Errorf("Expected heat then cold tomorrow, got %+v", report.Days[1].Advisories)
	}
}

func TestRunExactlyTwoDays(t *testing.T) {
	for _, n := range []int{2, 3, 16} {
		t.Run(fmt.Sprintf("%d days", n), func(t *testing.T) {
			result := NewPipeline(&mockGeocoder{location: tokyo()}, &mockForecaster{forecast: forecastWithDays(n)}).
				Run(context.Background(), "Tokyo")
			if !result.OK() {
				t.Fatalf("Expected ready, got %+v", result.Failure)
			}
			if len(result.Report.Days) != 2 {
				t.Fatalf("Expected 2 days, got %d", len(result.Report.Days))
			}
			if result.Report.Days[0].Day.Date != "2026-10-16" || result.Report.Days[1].Day.Date != "2026-10-17" {
				t.Errorf("Expected indices 0 and 1, got %s and %s",
					result.Report.Days[0].Day.Date, result.Report.Days[1].Day.Date)
			}
		})
	}
}

func TestRunInputRejected(t *testing.T) {
	for _, city := range []string{"", "   ", "\t"} {
		geo := &mockGeocoder{location: tokyo()}
		fc := &mockForecaster{forecast: forecastWithDays(2)}

		result := NewPipeline(geo, fc).Run(context.Background(), city)

		if result.State != StateInputRejected {
			t.Errorf("Run(%q) expected input rejected, got %s", city, result.State)
		}
		if !reflect.DeepEqual(result.Trace, []State{StateIdle, StateInputRejected}) {
			t.Errorf("Run(%q) unexpected trace %v", city, result.Trace)
		}
		if result.Failure == nil || result.Failure.Kind != InputRejected {
			t.Fatalf("Run(%q) expected InputRejected failure, got %+v", city, result.Failure)
		}
		if result.Failure.Message != "❌ 都市名を入力してください" {
			t.Errorf("Unexpected message %q", result.Failure.Message)
		}
		if len(geo.calls) != 0 || fc.calls != 0 {
			t.Errorf("Run(%q) made calls: geocode=%d forecast=%d", city, len(geo.calls), fc.calls)
		}
		if result.Report != nil {
			t.Error("Rejected run must not carry a report")
		}
	}
}

func TestRunFailures(t *testing.T) {
	netErr := errorutil.NewHTTPStatusError("forecast request", "http://example.invalid/v1/forecast", 503, "down")

	tests := []struct {
		name          string
		geoErr        error
		forecastErr   error
		forecast      *api.Forecast
		wantKind      Kind
		wantMessage   string
		wantTrace     []State
		wantForecasts int
	}{
		{
			name:          "not found",
			geoErr:        api.ErrLocationNotFound,
			wantKind:      NotFound,
			wantMessage:   "❌ 「Atlantis」が見つかりませんでした。英語で入力してください。",
			wantTrace:     []State{StateIdle, StateAwaitingGeocode, StateFailed},
			wantForecasts: 0,
		},
		{
			name:          "geocoding request error",
			geoErr:        errorutil.NewNetworkError("geocoding request", "http://example.invalid", errors.New("connection refused")),
			wantKind:      RequestError,
			wantMessage:   "❌ 天気情報の取得に失敗しました: ",
			wantTrace:     []State{StateIdle, StateAwaitingGeocode, StateFailed},
			wantForecasts: 0,
		},
		{
			name:          "geocoding incomplete",
			geoErr:        fmt.Errorf("%w: no coordinates", api.ErrIncompleteResponse),
			wantKind:      UnexpectedError,
			wantMessage:   "❌ エラーが発生しました: ",
			wantTrace:     []State{StateIdle, StateAwaitingGeocode, StateFailed},
			wantForecasts: 0,
		},
		{
			name:          "forecast request error",
			forecastErr:   netErr,
			wantKind:      RequestError,
			wantMessage:   "❌ 天気情報の取得に失敗しました: ",
			wantTrace:     []State{StateIdle, StateAwaitingGeocode, StateAwaitingForecast, StateFailed},
			wantForecasts: 1,
		},
		{
			name:          "forecast incomplete",
			forecastErr:   fmt.Errorf("%w: missing \"daily\" block", api.ErrIncompleteResponse),
			wantKind:      UnexpectedError,
			wantMessage:   "❌ エラーが発生しました: ",
			wantTrace:     []State{StateIdle, StateAwaitingGeocode, StateAwaitingForecast, StateFailed},
			wantForecasts: 1,
		},
		{
			name:          "single day forecast",
			forecast:      forecastWithDays(1),
			wantKind:      UnexpectedError,
			wantMessage:   "❌ エラーが発生しました: ",
			wantTrace:     []State{StateIdle, StateAwaitingGeocode, StateAwaitingForecast, StateFailed},
			wantForecasts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geo := &mockGeocoder{location: tokyo(), err: tt.geoErr}
			fc := &mockForecaster{forecast: tt.forecast, err: tt.forecastErr}
			if tt.geoErr != nil {
				geo.location = nil
			}

			result := NewPipeline(geo, fc).Run(context.Background(), "Atlantis")

			if result.State != StateFailed || result.Failure == nil {
				t.Fatalf("Expected failed state, got %s", result.State)
			}
			if result.Failure.Kind != tt.wantKind {
				t.Errorf("Expected kind %s, got %s", tt.wantKind, result.Failure.Kind)
			}
			if !strings.HasPrefix(result.Failure.Message, tt.wantMessage) {
				t.Errorf("Expected message starting %q, got %q", tt.wantMessage, result.Failure.Message)
			}
			if !reflect.DeepEqual(result.Trace, tt.wantTrace) {
				t.Errorf("Expected trace %v, got %v", tt.wantTrace, result.Trace)
			}
			if fc.calls != tt.wantForecasts {
				t.Errorf("Expected %d forecast calls, got %d", tt.wantForecasts, fc.calls)
			}
			if result.Report != nil {
				t.Error("Failed run must not carry a report")
			}
			if tt.geoErr != nil && !errors.Is(result.Failure, tt.geoErr) {
				t.Errorf("Failure should wrap the stage error")
			}
		})
	}
}

func TestRunIsolation(t *testing.T) {
	geo := &mockGeocoder{err: api.ErrLocationNotFound}
	fc := &mockForecaster{forecast: forecastWithDays(2)}
	pipeline := NewPipeline(geo, fc)

	first := pipeline.Run(context.Background(), "Nowhere")
	if first.State != StateFailed {
		t.Fatalf("Expected first run to fail, got %s", first.State)
	}

	geo.err = nil
	geo.location = tokyo()
	second := pipeline.Run(context.Background(), "Tokyo")
	if !second.OK() || second.Failure != nil {
		t.Fatalf("Second run should not inherit the first failure: %+v", second.Failure)
	}
	if first.Failure == nil || first.State != StateFailed {
		t.Error("First result was modified by the second run")
	}
}

func TestTraceNeverRepeats(t *testing.T) {
	results := []*Result{
		NewPipeline(&mockGeocoder{location: tokyo()}, &mockForecaster{forecast: forecastWithDays(2)}).Run(context.Background(), "Tokyo"),
		NewPipeline(&mockGeocoder{err: api.ErrLocationNotFound}, &mockForecaster{}).Run(context.Background(), "x"),
		NewPipeline(&mockGeocoder{}, &mockForecaster{}).Run(context.Background(), ""),
	}
	for _, r := range results {
		seen := map[State]bool{}
		for _, s := range r.Trace {
			if seen[s] {
				t.Errorf("State %s repeated in trace %v", s, r.Trace)
			}
			seen[s] = true
		}
		if !r.Trace[len(r.Trace)-1].Terminal() {
			t.Errorf("Trace %v does not end in a terminal state", r.Trace)
		}
	}
}

func TestRunIgnoresGapsBeyondTomorrow(t *testing.T) {
	geoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"name":"名古屋市","country":"日本","latitude":35.18,"longitude":136.91}]}`))
	}))
	defer geoServer.Close()

	forecastServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"current": {"temperature_2m": 19, "relative_humidity_2m": 65, "weather_code": 2, "wind_speed_10m": 10},
			"daily": {
				"time": ["d0", "d1", "d2"],
				"weather_code": [1, 2, null],
				"temperature_2m_max": [22, 23, null],
				"temperature_2m_min": [14, 15, null],
				"precipitation_sum": [0, 0, null]
			}
		}`))
	}))
	defer forecastServer.Close()

	pipeline := NewPipeline(
		api.NewGeocodingClient(api.GeocodingConfig{BaseURL: geoServer.URL, Language: "ja", Timeout: 2 * time.Second}),
		api.NewForecastClient(api.ForecastConfig{BaseURL: forecastServer.URL, Timezone: "Asia/Tokyo", Timeout: 2 * time.Second}),
	)

	result := pipeline.Run(context.Background(), "Nagoya")
	if !result.OK() {
		t.Fatalf("Expected ready, got state %s failure %+v", result.State, result.Failure)
	}
	if result.Report.Days[0].Day.Date != "d0" || result.Report.Days[1].Day.Date != "d1" {
		t.Errorf("Unexpected days %+v", result.Report.Days)
	}
}

func TestRunWrongShapeIsUnexpected(t *testing.T) {
	geoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"name":"京都市","country":"日本","latitude":35.02,"longitude":135.75}]}`))
	}))
	defer geoServer.Close()

	forecastServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current":"x","daily":{}}`))
	}))
	defer forecastServer.Close()

	pipeline := NewPipeline(
		api.NewGeocodingClient(api.GeocodingConfig{BaseURL: geoServer.URL, Language: "ja", Timeout: 2 * time.Second}),
		api.NewForecastClient(api.ForecastConfig{BaseURL: forecastServer.URL, Timezone: "Asia/Tokyo", Timeout: 2 * time.Second}),
	)

	result := pipeline.Run(context.Background(), "Kyoto")
	if result.Failure == nil || result.Failure.Kind != UnexpectedError {
		t.Fatalf("Expected UnexpectedError, got %+v", result.Failure)
	}
	if !strings.HasPrefix(result.Failure.Message, "❌ エラーが発生しました: ") {
		t.Errorf("Unexpected message %q", result.Failure.Message)
	}
}

// End to end over the real clients with stub servers
func TestRunWithHTTPClients(t *testing.T) {
	var forecastCalls int32
	forecastServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&forecastCalls, 1)
		w.Write([]byte(`{
			"current_units": {"wind_speed_10m": "km/h"},
			"current": {"temperature_2m": 31.2, "relative_humidity_2m": 60, "weather_code": 0, "wind_speed_10m": 7.2},
			"daily": {
				"time": ["2026-10-16", "2026-10-17"],
				"weather_code": [0, 95],
				"temperature_2m_max": [33.1, 28.0],
				"temperature_2m_min": [24.0, 21.5],
				"precipitation_sum": [0.0, 12.3]
			}
		}`))
	}))
	defer forecastServer.Close()

	geoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("name") == "Fukuoka" {
			w.Write([]byte(`{"results":[{"name":"福岡市","country":"日本","latitude":33.6,"longitude":130.41667}]}`))
			return
		}
		w.Write([]byte(`{"generationtime_ms":0.3}`))
	}))
	defer geoServer.Close()

	pipeline := NewPipeline(
		api.NewGeocodingClient(api.GeocodingConfig{BaseURL: geoServer.URL, Language: "ja", Timeout: 2 * time.Second}),
		api.NewForecastClient(api.ForecastConfig{BaseURL: forecastServer.URL, Timezone: "Asia/Tokyo", Timeout: 2 * time.Second}),
	)

	result := pipeline.Run(context.Background(), "Fukuoka")
	if !result.OK() {
		t.Fatalf("Expected ready, got %+v", result.Failure)
	}
	if result.Report.Location.String() != "福岡市, 日本" {
		t.Errorf("Unexpected location %s", result.Report.Location)
	}
	if got := result.Report.Days[1].Weather.String(); got != "⛈️ 雷雨" {
		t.Errorf("Expected ⛈️ 雷雨 tomorrow, got %s", got)
	}

	missing := pipeline.Run(context.Background(), "Qwertyuiop")
	if missing.Failure == nil || missing.Failure.Kind != NotFound {
		t.Fatalf("Expected NotFound, got %+v", missing.Failure)
	}
	if n := atomic.LoadInt32(&forecastCalls); n != 1 {
		t.Errorf("Expected forecast endpoint called once in total, got %d", n)
	}
}

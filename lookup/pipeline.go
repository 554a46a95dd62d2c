// Package lookup runs a single weather lookup: geocode a city, fetch its
// forecast, and assemble the report shown to the user.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"asutenki/api"
	"asutenki/internal/advisory"
	"asutenki/internal/errorutil"
	"asutenki/internal/logger"
	"asutenki/internal/wmo"
)

// Geocoder resolves a city name to a location
type Geocoder interface {
	Resolve(ctx context.Context, city string) (*api.Location, error)
}

// Forecaster fetches the forecast for a coordinate
type Forecaster interface {
	Forecast(ctx context.Context, latitude, longitude float64) (*api.Forecast, error)
}

// State is a step of a lookup run
type State int

const (
	StateIdle State = iota
	StateAwaitingGeocode
	StateAwaitingForecast
	StateReady
	StateFailed
	StateInputRejected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingGeocode:
		return "awaiting_geocode"
	case StateAwaitingForecast:
		return "awaiting_forecast"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateInputRejected:
		return "input_rejected"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition follows s
func (s State) Terminal() bool {
	return s == StateReady || s == StateFailed || s == StateInputRejected
}

// Kind classifies why a run did not reach StateReady
type Kind int

const (
	InputRejected Kind = iota
	NotFound
	RequestError
	UnexpectedError
)

func (k Kind) String() string {
	switch k {
	case InputRejected:
		return "input_rejected"
	case NotFound:
		return "not_found"
	case RequestError:
		return "request_error"
	default:
		return "unexpected_error"
	}
}

// Failure is the terminal error of a run, with the message shown to the user
type Failure struct {
	Kind    Kind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// CurrentView is the current conditions with their resolved label
type CurrentView struct {
	api.Current
	Weather wmo.Label
}

// DayView is one forecast day ready for display
type DayView struct {
	Label      string // "今日" or "明日"
	Day        api.Day
	Weather    wmo.Label
	Advisories []advisory.Advisory
}

// Report is everything presented for a successful lookup
type Report struct {
	Query    string
	Location api.Location
	Current  CurrentView
	Days     []DayView
}

// Result is the outcome of one run. Exactly one of Report and Failure is set.
type Result struct {
	Query   string
	State   State
	Trace   []State // every state entered, in order, starting at StateIdle
	Report  *Report
	Failure *Failure
}

// OK reports whether the run reached StateReady
func (r *Result) OK() bool {
	return r.State == StateReady && r.Report != nil
}

var dayLabels = [...]string{"今日", "明日"}

// Pipeline sequences the geocoding and forecast stages. It holds no
// per-run state and may be reused across runs.
type Pipeline struct {
	geocoder   Geocoder
	forecaster Forecaster
}

// NewPipeline creates a pipeline over the given stages
func NewPipeline(geocoder Geocoder, forecaster Forecaster) *Pipeline {
	return &Pipeline{
		geocoder:   geocoder,
		forecaster: forecaster,
	}
}

// run tracks the state machine of a single lookup
type run struct {
	result *Result
}

func (r *run) enter(s State) {
	r.result.State = s
	r.result.Trace = append(r.result.Trace, s)
	logger.Debug("Lookup %q entered state %s", r.result.Query, s)
}

func (r *run) fail(kind Kind, err error) *Result {
	r.result.Failure = &Failure{
		Kind:    kind,
		Message: userMessage(kind, r.result.Query, err),
		Err:     err,
	}
	if kind == InputRejected {
		r.enter(StateInputRejected)
	} else {
		r.enter(StateFailed)
	}
	return r.result
}

// Run executes one lookup from StateIdle to a terminal state. Blank input is
// rejected without any request; otherwise each stage runs once, in order,
// and the first failure ends the run.
func (p *Pipeline) Run(ctx context.Context, city string) *Result {
	query := strings.TrimSpace(city)
	r := &run{result: &Result{Query: query}}
	r.enter(StateIdle)

	if query == "" {
		return r.fail(InputRejected, api.ErrEmptyCity)
	}

	complete := logger.LogOperationStart("lookup", map[string]any{"city": query})
	result := p.execute(ctx, r)
	if result.Failure != nil {
		errorutil.LogWarning(logger.Get().Logger, "lookup", result.Failure.Err,
			append(errorutil.CityContext(query), slog.String("kind", result.Failure.Kind.String()))...)
		complete(result.Failure)
	} else {
		complete(nil)
	}
	return result
}

func (p *Pipeline) execute(ctx context.Context, r *run) *Result {
	query := r.result.Query

	r.enter(StateAwaitingGeocode)
	location, err := p.geocoder.Resolve(ctx, query)
	if err != nil {
		return r.fail(classify(err), err)
	}
	if location == nil {
		return r.fail(UnexpectedError, fmt.Errorf("%w: geocoder returned no location", api.ErrIncompleteResponse))
	}
	logger.Get().LogAttrs(ctx, slog.LevelDebug, "Location resolved",
		errorutil.LocationContext(location.Name, location.Latitude, location.Longitude)...)

	r.enter(StateAwaitingForecast)
	forecast, err := p.forecaster.Forecast(ctx, location.Latitude, location.Longitude)
	if err != nil {
		return r.fail(classify(err), err)
	}

	report, err := buildReport(query, *location, forecast)
	if err != nil {
		return r.fail(UnexpectedError, err)
	}

	r.result.Report = report
	r.enter(StateReady)
	return r.result
}

// buildReport labels the current conditions and the first two forecast days
func buildReport(query string, location api.Location, forecast *api.Forecast) (*Report, error) {
	if forecast == nil {
		return nil, fmt.Errorf("%w: forecaster returned no forecast", api.ErrIncompleteResponse)
	}
	if len(forecast.Daily) < len(dayLabels) {
		return nil, fmt.Errorf("%w: forecast has %d daily entries, need %d",
			api.ErrIncompleteResponse, len(forecast.Daily), len(dayLabels))
	}

	report := &Report{
		Query:    query,
		Location: location,
		Current: CurrentView{
			Current: forecast.Current,
			Weather: wmo.LabelFor(forecast.Current.WeatherCode),
		},
		Days: make([]DayView, 0, len(dayLabels)),
	}

	for i, label := range dayLabels {
		day := forecast.Daily[i]
		report.Days = append(report.Days, DayView{
			Label:      label,
			Day:        day,
			Weather:    wmo.LabelFor(day.WeatherCode),
			Advisories: advisory.For(day),
		})
	}

	return report, nil
}

// classify maps a stage error to the kind reported to the user
func classify(err error) Kind {
	var netErr *errorutil.NetworkError
	switch {
	case errors.Is(err, api.ErrEmptyCity):
		return InputRejected
	case errors.Is(err, api.ErrLocationNotFound):
		return NotFound
	case errors.As(err, &netErr):
		return RequestError
	default:
		return UnexpectedError
	}
}

func userMessage(kind Kind, query string, err error) string {
	switch kind {
	case InputRejected:
		return "❌ 都市名を入力してください"
	case NotFound:
		return fmt.Sprintf("❌ 「%s」が見つかりませんでした。英語で入力してください。", query)
	case RequestError:
		return fmt.Sprintf("❌ 天気情報の取得に失敗しました: %v", err)
	default:
		return fmt.Sprintf("❌ エラーが発生しました: %v", err)
	}
}

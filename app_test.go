package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"asutenki/config"
)

const testForecastBody = `{
	"current_units": {"wind_speed_10m": "km/h"},
	"current": {"temperature_2m": 12.5, "relative_humidity_2m": 55, "weather_code": 2, "wind_speed_10m": 18},
	"daily": {
		"time": ["2026-10-16", "2026-10-17", "2026-10-18"],
		"weather_code": [2, 80, 3],
		"temperature_2m_max": [17.0, 15.2, 16.0],
		"temperature_2m_min": [9.1, 8.4, 7.0],
		"precipitation_sum": [0.0, 6.5, 1.0]
	}
}`

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("name") {
		case "Tokyo":
			w.Write([]byte(`{"results":[{"name":"東京","country":"日本","latitude":35.6895,"longitude":139.69171}]}`))
		case "Osaka":
			w.Write([]byte(`{"results":[{"name":"大阪市","country":"日本","latitude":34.69,"longitude":135.50}]}`))
		default:
			w.Write([]byte(`{}`))
		}
	}))
	t.Cleanup(geo.Close)

	forecast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testForecastBody))
	}))
	t.Cleanup(forecast.Close)

	cfg := config.Default()
	cfg.OpenMeteo.GeocodingURL = geo.URL
	cfg.OpenMeteo.ForecastURL = forecast.URL
	cfg.OpenMeteo.TimeoutSeconds = 2
	return cfg
}

func TestAppLookup(t *testing.T) {
	var out bytes.Buffer
	a := newApp(newTestConfig(t), &out)

	if !a.lookup(context.Background(), "Tokyo") {
		t.Fatalf("Expected successful lookup, got:\n%s", out.String())
	}
	for _, want := range []string{"✅ 東京, 日本 の天気を取得します", "風速: 5.0 m/s", "明日 (2026-10-17)", "☔ 傘を持って行きましょう"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Output missing %q", want)
		}
	}
	if strings.Contains(out.String(), "2026-10-18") {
		t.Error("Only today and tomorrow should be rendered")
	}

	out.Reset()
	if a.lookup(context.Background(), "Atlantis") {
		t.Error("Expected lookup of unknown city to fail")
	}
	if got := strings.TrimSpace(out.String()); got != "❌ 「Atlantis」が見つかりませんでした。英語で入力してください。" {
		t.Errorf("Unexpected not-found output %q", got)
	}
}

func TestRunInteractive(t *testing.T) {
	var out bytes.Buffer
	a := newApp(newTestConfig(t), &out)

	input := strings.NewReader("2\nAtlantis\n\nTokyo\nq\nOsaka\n")
	if err := a.runInteractive(context.Background(), input); err != nil {
		t.Fatalf("runInteractive() unexpected error: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"💡 使い方",
		"1) Tokyo",
		"✅ 大阪市, 日本 の天気を取得します",
		"❌ 「Atlantis」が見つかりませんでした。英語で入力してください。",
		"❌ 都市名を入力してください",
		"✅ 東京, 日本 の天気を取得します",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Interactive output missing %q", want)
		}
	}
	if strings.Count(got, "✅ 大阪市") != 1 {
		t.Error("Input after q must not be processed")
	}
}

func TestAppNarration(t *testing.T) {
	claude := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg","type":"message","role":"assistant","model":"claude-test","content":[{"type":"text","text":"明日は傘をお忘れなく。"}],"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":8}}`))
	}))
	defer claude.Close()

	cfg := newTestConfig(t)
	cfg.Claude.APIKey = "test-key"
	cfg.Claude.BaseURL = claude.URL + "/"

	var out bytes.Buffer
	a := newApp(cfg, &out)
	a.narrator = newNarrator(cfg)
	if a.narrator == nil {
		t.Fatal("Expected narrator to be configured")
	}

	if !a.lookup(context.Background(), "Tokyo") {
		t.Fatalf("Expected successful lookup, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "🗣️ 明日は傘をお忘れなく。") {
		t.Errorf("Narration missing from output:\n%s", out.String())
	}
}

func TestNewNarratorDisabled(t *testing.T) {
	if n := newNarrator(config.Default()); n != nil {
		t.Error("Expected no narrator without an API key")
	}
}

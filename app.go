package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"asutenki/api"
	"asutenki/config"
	"asutenki/internal/display"
	"asutenki/internal/errorutil"
	"asutenki/internal/logger"
	"asutenki/lookup"
)

// app wires the lookup pipeline to terminal output
type app struct {
	pipeline *lookup.Pipeline
	narrator *api.Narrator // nil when narration is off
	out      io.Writer
}

func newApp(cfg *config.Config, out io.Writer) *app {
	geocoder := api.NewGeocodingClient(api.GeocodingConfig{
		BaseURL:  cfg.OpenMeteo.GeocodingURL,
		Language: cfg.OpenMeteo.Language,
		Timeout:  cfg.OpenMeteo.Timeout(),
	})
	forecaster := api.NewForecastClient(api.ForecastConfig{
		BaseURL:  cfg.OpenMeteo.ForecastURL,
		Timezone: cfg.OpenMeteo.Timezone,
		Timeout:  cfg.OpenMeteo.Timeout(),
	})

	return &app{
		pipeline: lookup.NewPipeline(geocoder, forecaster),
		out:      out,
	}
}

// lookup runs one pipeline and renders it. It reports whether the run reached Ready.
func (a *app) lookup(ctx context.Context, city string) bool {
	result := a.pipeline.Run(ctx, city)

	var report bytes.Buffer
	if err := display.Render(io.MultiWriter(a.out, &report), result); err != nil {
		logger.Error("Failed to render result: %v", err)
		return false
	}

	if !result.OK() {
		return false
	}

	if a.narrator != nil {
		text, err := a.narrator.Narrate(ctx, report.String())
		if err != nil {
			// Narration is optional; the forecast is already shown
			attrs := append(errorutil.APIContext("anthropic", a.narrator.Model()), errorutil.CityContext(result.Query)...)
			errorutil.LogWarning(logger.Get().Logger, "narration", err, attrs...)
		} else {
			display.Narration(a.out, text)
		}
	}
	return true
}

// runInteractive reads one city per line until EOF or "q". A line holding a
// number picks that entry from the quick-select list.
func (a *app) runInteractive(ctx context.Context, in io.Reader) error {
	cities := lookup.QuickCities()

	display.Usage(a.out)
	fmt.Fprintln(a.out)
	display.QuickSelect(a.out, cities)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(a.out, "\n都市名 > ")
		if !scanner.Scan() {
			fmt.Fprintln(a.out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "q", "quit", "exit":
			return nil
		}

		quickSelect := lookup.Placeholder
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(cities) {
			quickSelect = cities[n-1]
		}

		a.lookup(ctx, lookup.EffectiveCity(quickSelect, line))
	}
}

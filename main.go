package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"asutenki/api"
	"asutenki/config"
	"asutenki/internal/display"
	"asutenki/internal/errorutil"
	"asutenki/internal/logger"
	"asutenki/lookup"
)

func main() {
	// Define command-line flags
	configPath := flag.String("config", getDefaultConfigPath(), "Path to TOML configuration file (optional)")
	city := flag.String("city", "", "City name in English (default: app.default_city from config)")
	quick := flag.String("quick", "", "Quick-select city, overrides -city (Tokyo, Osaka, Nagoya, Fukuoka, Sapporo, Yokohama, Kyoto)")
	interactive := flag.Bool("interactive", false, "Read city names from stdin, one lookup per line")
	narrate := flag.Bool("narrate", false, "Add a short Claude summary after the forecast (requires claude.api_key)")
	logLevel := flag.String("log-level", "", "Logging level (debug, info, warn, error); overrides config")
	logFile := flag.String("log-file", "", "Log output file (default: stderr)")
	generateConfig := flag.Bool("generate-config", false, "Generate a sample configuration file and exit")
	flag.Usage = func() {
		display.Usage(flag.CommandLine.Output())
		fmt.Fprintln(flag.CommandLine.Output())
		flag.PrintDefaults()
	}
	flag.Parse()

	// Handle config generation
	if *generateConfig {
		if err := config.GenerateSampleConfig(*configPath); err != nil {
			err = errorutil.LogAndWrap(logger.Get().Logger, "generate sample config", err, errorutil.ConfigContext(*configPath)...)
			logger.Fatal("%v", err)
		}
		logger.Info("Sample configuration file created at: %s", *configPath)
		return
	}

	// Load configuration; a missing file means defaults
	cfg, found, err := config.LoadOrDefault(*configPath)
	if err != nil {
		err = errorutil.LogAndWrap(logger.Get().Logger, "load configuration", err, errorutil.ConfigContext(*configPath)...)
		logger.Fatal("%v", err)
	}
	if *logLevel != "" {
		if _, err := logger.ParseLevel(*logLevel); err != nil {
			logger.Warn("Invalid log level: %s, using %s", *logLevel, cfg.Logging.Level)
		} else {
			cfg.Logging.Level = *logLevel
		}
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Configuration validation failed: %v", err)
	}

	if err := setupLogging(cfg, *logFile); err != nil {
		logger.Error("Failed to set up logging: %v", err)
	}
	defer logger.Get().Close()

	if found {
		logger.Debug("Configuration loaded and validated from: %s", *configPath)
	} else {
		logger.Debug("No configuration file at %s, using defaults", *configPath)
	}
	if name := logger.Get().FileName(); name != "" {
		logger.Debug("Writing logs to %s", name)
	}
	logger.LogWithFields(logger.DebugLevel, "Lookup settings", map[string]any{
		"geocoding_url": cfg.OpenMeteo.GeocodingURL,
		"forecast_url":  cfg.OpenMeteo.ForecastURL,
		"language":      cfg.OpenMeteo.Language,
		"timezone":      cfg.OpenMeteo.Timezone,
		"timeout":       cfg.OpenMeteo.Timeout().String(),
	})

	textInput := cfg.App.DefaultCity
	if flagWasSet("city") {
		textInput = *city
	}

	quickSelect := lookup.Placeholder
	if *quick != "" {
		canonical, ok := lookup.CanonicalQuickCity(*quick)
		if !ok {
			fmt.Fprintf(os.Stderr, "❌ 「%s」はクイック選択にありません\n\n", *quick)
			flag.Usage()
			os.Exit(2)
		}
		quickSelect = canonical
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := newApp(cfg, os.Stdout)
	if *narrate {
		a.narrator = newNarrator(cfg)
	}

	if *interactive {
		if err := a.runInteractive(ctx, os.Stdin); err != nil {
			logger.Error("Interactive session ended: %v", err)
			os.Exit(1)
		}
		return
	}

	if !a.lookup(ctx, lookup.EffectiveCity(quickSelect, textInput)) {
		os.Exit(1)
	}
}

// setupLogging applies -log-file or the [logging] section to the global logger
func setupLogging(cfg *config.Config, logFile string) error {
	if logFile != "" {
		return logger.SetOutput(logFile, cfg.Logging.Level)
	}
	return logger.Initialize(cfg.Logging)
}

func newNarrator(cfg *config.Config) *api.Narrator {
	if !cfg.Claude.Enabled() {
		logger.Warn("Narration requested but claude.api_key is not set; skipping")
		return nil
	}

	narrator, err := api.NewNarrator(api.NarratorConfig{
		APIKey:      cfg.Claude.APIKey,
		Model:       cfg.Claude.Model,
		MaxTokens:   cfg.Claude.MaxTokens,
		Temperature: cfg.Claude.Temperature,
		Timeout:     time.Duration(cfg.Claude.TimeoutSeconds) * time.Second,
		BaseURL:     cfg.Claude.BaseURL,
	})
	if err != nil {
		logger.Warn("Narration disabled: %v", err)
		return nil
	}
	return narrator
}

// flagWasSet reports whether a flag was given on the command line
func flagWasSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// getDefaultConfigPath returns a cross-platform default config path
func getDefaultConfigPath() string {
	return filepath.Clean("config.toml")
}

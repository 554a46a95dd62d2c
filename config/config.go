package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/pelletier/go-toml/v2"

	"asutenki/internal/errorutil"
	"asutenki/internal/logger"
)

const (
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com"
	DefaultForecastURL  = "https://api.open-meteo.com"
	DefaultLanguage     = "ja"
	DefaultTimezone     = "Asia/Tokyo"
	DefaultTimeout      = 10 // seconds per request
	DefaultCity         = "Tokyo"
	DefaultClaudeModel  = "claude-3-5-haiku-latest"

	// DefaultClaudeTemperature applies only when the key is absent; 0 is a valid setting
	DefaultClaudeTemperature = 0.7
)

// OpenMeteo contains the endpoints and fixed query context for Open-Meteo
type OpenMeteo struct {
	GeocodingURL   string `toml:"geocoding_url"`
	ForecastURL    string `toml:"forecast_url"`
	Language       string `toml:"language"`        // Geocoding result language
	Timezone       string `toml:"timezone"`        // Timezone for daily aggregation
	TimeoutSeconds int    `toml:"timeout_seconds"` // Per-request timeout
}

// Timeout returns the per-request timeout as a duration
func (o OpenMeteo) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// App contains lookup defaults
type App struct {
	DefaultCity string `toml:"default_city"`
}

// Claude configures the optional narration of a forecast. Narration is off
// when APIKey is empty.
type Claude struct {
	APIKey         string  `toml:"api_key"`
	Model          string  `toml:"model"`
	MaxTokens      int     `toml:"max_tokens"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	BaseURL        string  `toml:"base_url"`
}

// Enabled reports whether an API key is configured
func (c Claude) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// Config represents the complete application configuration
type Config struct {
	OpenMeteo OpenMeteo     `toml:"openmeteo"`
	App       App           `toml:"app"`
	Claude    Claude        `toml:"claude"`
	Logging   logger.Config `toml:"logging"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := newConfig()
	cfg.ApplyDefaults()
	return cfg
}

// newConfig presets the fields whose zero value is a legal setting.
// toml.Unmarshal leaves them untouched when their keys are absent.
func newConfig() *Config {
	return &Config{
		Claude: Claude{Temperature: DefaultClaudeTemperature},
	}
}

// LoadConfig reads and parses a TOML configuration file
func LoadConfig(configPath string) (*Config, error) {
	cleanPath := filepath.Clean(configPath)

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigNotFoundError{Path: cleanPath}
		}
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	cfg := newConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML configuration: %w", err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// LoadOrDefault loads configPath, falling back to defaults when the file does not exist.
// The second return value reports whether a file was read.
func LoadOrDefault(configPath string) (*Config, bool, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		var notFound *ConfigNotFoundError
		if errors.As(err, &notFound) {
			return Default(), false, nil
		}
		return nil, false, err
	}
	return cfg, true, nil
}

// ApplyDefaults sets default values for optional configuration fields
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.OpenMeteo.GeocodingURL) == "" {
		c.OpenMeteo.GeocodingURL = DefaultGeocodingURL
	}
	if strings.TrimSpace(c.OpenMeteo.ForecastURL) == "" {
		c.OpenMeteo.ForecastURL = DefaultForecastURL
	}
	if strings.TrimSpace(c.OpenMeteo.Language) == "" {
		c.OpenMeteo.Language = DefaultLanguage
	}
	if strings.TrimSpace(c.OpenMeteo.Timezone) == "" {
		c.OpenMeteo.Timezone = DefaultTimezone
	}
	if c.OpenMeteo.TimeoutSeconds <= 0 {
		c.OpenMeteo.TimeoutSeconds = DefaultTimeout
	}

	if strings.TrimSpace(c.App.DefaultCity) == "" {
		c.App.DefaultCity = DefaultCity
	}

	if strings.TrimSpace(c.Claude.Model) == "" {
		c.Claude.Model = DefaultClaudeModel
	}
	if c.Claude.MaxTokens <= 0 {
		c.Claude.MaxTokens = 300
	}
	if c.Claude.TimeoutSeconds <= 0 {
		c.Claude.TimeoutSeconds = 30
	}

	if strings.TrimSpace(c.Logging.Directory) == "" {
		c.Logging.Directory = "logs"
	}
	if strings.TrimSpace(c.Logging.FilenamePattern) == "" {
		c.Logging.FilenamePattern = "asutenki-YYYYMMDD.log"
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxFiles <= 0 {
		c.Logging.MaxFiles = 7
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = 10
	}
}

// ConfigNotFoundError represents a missing configuration file
type ConfigNotFoundError struct {
	Path string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("configuration file not found: %s\n\nTo create a sample configuration file, run:\n  %s -generate-config", e.Path, filepath.Base(os.Args[0]))
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// MultiValidationError represents multiple validation errors
type MultiValidationError struct {
	Errors []ValidationError
}

func (e *MultiValidationError) Error() string {
	var messages []string
	for _, err := range e.Errors {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("configuration validation failed:\n  %s", strings.Join(messages, "\n  "))
}

// Validate checks the configuration for correctness and completeness
func (c *Config) Validate() error {
	var all errorutil.ValidationErrors

	all.Append(errorutil.ValidateURL("openmeteo.geocoding_url", c.OpenMeteo.GeocodingURL))
	all.Append(errorutil.ValidateURL("openmeteo.forecast_url", c.OpenMeteo.ForecastURL))
	all.Append(errorutil.ValidateRequired("openmeteo.language", c.OpenMeteo.Language))
	all.Append(validateTimezone(c.OpenMeteo.Timezone))
	all.Append(errorutil.ValidateIntRange("openmeteo.timeout_seconds", c.OpenMeteo.TimeoutSeconds, 1, 120))

	all.Append(errorutil.ValidateRequired("app.default_city", c.App.DefaultCity))

	if c.Claude.Enabled() {
		all.Append(errorutil.ValidateRequired("claude.model", c.Claude.Model))
		all.Append(errorutil.ValidateIntRange("claude.max_tokens", c.Claude.MaxTokens, 50, 4096))
		all.Append(errorutil.ValidateRange("claude.temperature", c.Claude.Temperature, 0, 1))
		all.Append(errorutil.ValidateIntRange("claude.timeout_seconds", c.Claude.TimeoutSeconds, 1, 300))
		if strings.TrimSpace(c.Claude.BaseURL) != "" {
			all.Append(errorutil.ValidateURL("claude.base_url", c.Claude.BaseURL))
		}
	}

	all.Append(errorutil.ValidateEnum("logging.level", c.Logging.Level, []string{"debug", "info", "warn", "error"}))
	all.Append(errorutil.ValidateIntRange("logging.max_files", c.Logging.MaxFiles, 0, 365))
	all.Append(errorutil.ValidateIntRange("logging.max_size_mb", c.Logging.MaxSizeMB, 0, 1000))
	if c.Logging.Enabled {
		all.Append(errorutil.ValidateRequired("logging.directory", c.Logging.Directory))
		if err := logger.ValidateFilenamePattern(c.Logging.FilenamePattern); err != nil {
			all.Append(&errorutil.ValidationError{
				Field:   "logging.filename_pattern",
				Rule:    "filename",
				Message: err.Error(),
			})
		}
	}

	if all.ErrorOrNil() == nil {
		return nil
	}
	errorutil.LogValidationErrors(logger.Get().Logger, &all)

	multi := &MultiValidationError{}
	for _, err := range all.Errors {
		multi.Errors = append(multi.Errors, ValidationError{Field: err.Field, Message: err.Message})
	}
	return multi
}

func validateTimezone(tz string) *errorutil.ValidationError {
	if err := errorutil.ValidateRequired("openmeteo.timezone", tz); err != nil {
		return err
	}
	// Open-Meteo also accepts "auto" and "GMT"
	if tz == "auto" || tz == "GMT" {
		return nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return &errorutil.ValidationError{
			Field:   "openmeteo.timezone",
			Value:   tz,
			Rule:    "timezone",
			Message: fmt.Sprintf("unknown IANA timezone %q", tz),
		}
	}
	return nil
}

// GenerateSampleConfig writes a commented sample configuration file
func GenerateSampleConfig(configPath string) error {
	sampleConfig := `# Asutenki configuration
# Every key is optional; the values below are the defaults.

[openmeteo]
# Open-Meteo needs no API key
geocoding_url = "https://geocoding-api.open-meteo.com"
forecast_url = "https://api.open-meteo.com"

# Language of geocoding results and timezone used for daily values
language = "ja"
timezone = "Asia/Tokyo"

# Timeout for each request, in seconds. Requests are never retried.
timeout_seconds = 10

[app]
# City looked up when neither -city nor -quick is given
default_city = "Tokyo"

[claude]
# Optional: a short spoken-style summary of the forecast.
# Leave api_key empty to disable narration.
api_key = ""
model = "claude-3-5-haiku-latest"
max_tokens = 300
temperature = 0.7
timeout_seconds = 30

[logging]
enabled = false                            # Write logs to a file
directory = "logs"                         # Relative to the working directory or absolute
filename_pattern = "asutenki-YYYYMMDD.log" # YYYY, MM, DD, HH are expanded
level = "info"                             # debug, info, warn, error
max_files = 7                              # Archived files to keep (0 = unlimited)
max_size_mb = 10                           # Rotate above this size (0 = unlimited)
console_output = false                     # Mirror file logs to stderr
`

	if err := errorutil.SafeFileWrite(logger.Get().Logger, configPath, []byte(sampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write sample config: %w", err)
	}
	return nil
}

package errorutil

import (
	"fmt"
	"log/slog"
)

// LogAndWrap logs an error with structured context and returns a wrapped error
func LogAndWrap(logger *slog.Logger, operation string, err error, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	if logger != nil {
		logger.Error(operation+" failed", toAny(err, attrs)...)
	}
	return fmt.Errorf("%s: %w", operation, err)
}

// LogWarning logs a non-fatal error as warning without wrapping
func LogWarning(logger *slog.Logger, operation string, err error, attrs ...slog.Attr) {
	if logger == nil || err == nil {
		return
	}
	logger.Warn("Non-fatal error in "+operation, toAny(err, attrs)...)
}

func toAny(err error, attrs []slog.Attr) []any {
	out := make([]any, 0, len(attrs)+1)
	out = append(out, slog.String("error", err.Error()))
	for _, attr := range attrs {
		out = append(out, attr)
	}
	return out
}

// CityContext creates context attributes for a lookup by city name
func CityContext(city string) []slog.Attr {
	if city == "" {
		return nil
	}
	return []slog.Attr{slog.String("city", city)}
}

// LocationContext creates context attributes for coordinate-based operations
func LocationContext(name string, latitude, longitude float64) []slog.Attr {
	attrs := []slog.Attr{
		slog.Float64("latitude", latitude),
		slog.Float64("longitude", longitude),
	}
	if name != "" {
		attrs = append([]slog.Attr{slog.String("location", name)}, attrs...)
	}
	return attrs
}

// ConfigContext creates context attributes for configuration operations
func ConfigContext(configFile string) []slog.Attr {
	if configFile == "" {
		return nil
	}
	return []slog.Attr{slog.String("config_file", configFile)}
}

// APIContext creates context attributes for API operations
func APIContext(provider, model string) []slog.Attr {
	attrs := make([]slog.Attr, 0, 2)
	if provider != "" {
		attrs = append(attrs, slog.String("api_provider", provider))
	}
	if model != "" {
		attrs = append(attrs, slog.String("model", model))
	}
	return attrs
}

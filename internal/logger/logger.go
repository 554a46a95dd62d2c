package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents logging severity using slog levels
type Level slog.Level

const (
	DebugLevel Level = Level(slog.LevelDebug)
	InfoLevel  Level = Level(slog.LevelInfo)
	WarnLevel  Level = Level(slog.LevelWarn)
	ErrorLevel Level = Level(slog.LevelError)
	FatalLevel Level = Level(slog.LevelError + 4)
)

const defaultFilenamePattern = "asutenki-YYYYMMDD.log"

// Config mirrors the [logging] section of the configuration file
type Config struct {
	Enabled         bool   `toml:"enabled"`
	Directory       string `toml:"directory"`
	FilenamePattern string `toml:"filename_pattern"`
	Level           string `toml:"level"`
	MaxFiles        int    `toml:"max_files"`
	MaxSizeMB       int    `toml:"max_size_mb"`
	ConsoleOutput   bool   `toml:"console_output"`
}

// EnhancedLogger wraps slog.Logger with file output and rotation
type EnhancedLogger struct {
	*slog.Logger
	config      Config
	console     io.Writer
	file        *os.File
	fileName    string
	fileSize    int64
	mu          sync.Mutex
	multiWriter io.Writer
}

var (
	globalLogger *EnhancedLogger
	globalMu     sync.Mutex
)

// Initialize replaces the global logger with one built from config.
func Initialize(config Config) error {
	l, err := NewEnhancedLogger(config)
	if err != nil {
		return err
	}

	globalMu.Lock()
	previous := globalLogger
	globalLogger = l
	globalMu.Unlock()

	if previous != nil {
		previous.Close()
	}
	return nil
}

// Get returns the global logger, falling back to a stderr logger at info level.
func Get() *EnhancedLogger {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalLogger == nil {
		// Reports are written to stdout; logs stay on stderr.
		globalLogger = &EnhancedLogger{
			Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			})),
		}
	}
	return globalLogger
}

// NewEnhancedLogger creates a logger writing to the console, a log file, or both.
func NewEnhancedLogger(config Config) (*EnhancedLogger, error) {
	return newEnhancedLogger(config, os.Stderr)
}

func newEnhancedLogger(config Config, console io.Writer) (*EnhancedLogger, error) {
	if config.Enabled && config.FilenamePattern != "" {
		if err := ValidateFilenamePattern(config.FilenamePattern); err != nil {
			return nil, fmt.Errorf("invalid filename pattern: %w", err)
		}
	}

	l := &EnhancedLogger{
		config:  config,
		console: console,
	}

	if config.Enabled {
		if err := os.MkdirAll(expandLogDirectory(config.Directory), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		file, err := l.openLogFileUnsafe()
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = file
	}

	l.rebuildUnsafe()

	l.Debug("Logger initialized",
		slog.String("log_file", l.fileName),
		slog.String("level", config.Level),
		slog.Bool("console", config.ConsoleOutput))

	return l, nil
}

// rebuildUnsafe recreates the writer chain and handler (caller must hold mutex)
func (l *EnhancedLogger) rebuildUnsafe() {
	writers := []io.Writer{}
	if l.config.ConsoleOutput || l.file == nil {
		writers = append(writers, l.console)
	}
	if l.file != nil {
		writers = append(writers, l.file)
	}
	l.multiWriter = io.MultiWriter(writers...)

	handler := slog.NewTextHandler(l, &slog.HandlerOptions{
		Level: parseLogLevel(l.config.Level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format("2006-01-02T15:04:05.000-07:00"))
			}
			if a.Key == slog.SourceKey {
				if source, ok := a.Value.Any().(*slog.Source); ok {
					return slog.String(slog.SourceKey, fmt.Sprintf("%s:%d", filepath.Base(source.File), source.Line))
				}
			}
			return a
		},
	})
	l.Logger = slog.New(handler)
}

// openLogFileUnsafe creates or opens the current log file (caller must hold mutex)
func (l *EnhancedLogger) openLogFileUnsafe() (*os.File, error) {
	fileName := generateLogFilename(l.config.FilenamePattern, time.Now())
	filePath := filepath.Join(expandLogDirectory(l.config.Directory), fileName)

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	l.fileName = filePath
	l.fileSize = info.Size()
	return file, nil
}

// expandLogDirectory resolves the log directory with platform-specific defaults
func expandLogDirectory(dir string) string {
	if dir == "" {
		return "logs"
	}
	if dir == "logs" || filepath.IsAbs(dir) || strings.HasPrefix(dir, ".") {
		return dir
	}

	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Asutenki", dir)
		}
	case "darwin", "linux":
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, ".asutenki", dir)
		}
	}
	return dir
}

// ValidateFilenamePattern rejects patterns that cannot form a portable file name.
func ValidateFilenamePattern(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return fmt.Errorf("filename pattern cannot be empty")
	}
	if strings.ContainsAny(pattern, `/\`) {
		return fmt.Errorf("filename pattern %q must not contain path separators", pattern)
	}
	if strings.ContainsAny(pattern, `<>:"|?*`) {
		return fmt.Errorf("filename pattern %q contains characters invalid on Windows", pattern)
	}
	for _, r := range pattern {
		if r < 0x20 {
			return fmt.Errorf("filename pattern %q contains control characters", pattern)
		}
	}
	if pattern == "." || pattern == ".." {
		return fmt.Errorf("filename pattern %q is reserved", pattern)
	}
	return nil
}

// generateLogFilename expands YYYY, MM, DD and HH tokens in the pattern
func generateLogFilename(pattern string, now time.Time) string {
	if pattern == "" {
		pattern = defaultFilenamePattern
	}

	r := strings.NewReplacer(
		"YYYY", fmt.Sprintf("%04d", now.Year()),
		"MM", fmt.Sprintf("%02d", now.Month()),
		"DD", fmt.Sprintf("%02d", now.Day()),
		"HH", fmt.Sprintf("%02d", now.Hour()),
	)
	return r.Replace(pattern)
}

// parseLogLevel converts string level to slog.Level
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// checkRotationUnsafe rotates on size or date change (caller must hold mutex)
func (l *EnhancedLogger) checkRotationUnsafe() error {
	if l.file == nil || !l.config.Enabled {
		return nil
	}

	maxSize := int64(l.config.MaxSizeMB) * 1024 * 1024
	if maxSize > 0 && l.fileSize >= maxSize {
		return l.rotateUnsafe()
	}

	if filepath.Base(l.fileName) != generateLogFilename(l.config.FilenamePattern, time.Now()) {
		return l.rotateUnsafe()
	}
	return nil
}

// rotateUnsafe archives the current file and opens a fresh one (caller must hold mutex)
func (l *EnhancedLogger) rotateUnsafe() error {
	if l.file != nil {
		l.file.Close()
	}

	if l.fileName != "" {
		if info, err := os.Stat(l.fileName); err == nil && info.Size() > 0 {
			ext := filepath.Ext(l.fileName)
			name := strings.TrimSuffix(l.fileName, ext)
			archived := fmt.Sprintf("%s-%s%s", name, time.Now().Format("20060102-150405"), ext)
			if err := os.Rename(l.fileName, archived); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to archive log file: %v\n", err)
			}
		}
	}

	file, err := l.openLogFileUnsafe()
	if err != nil {
		l.file = nil
		return err
	}
	l.file = file
	l.rebuildUnsafe()

	if l.config.MaxFiles > 0 {
		l.cleanOldFilesUnsafe()
	}
	return nil
}

// cleanOldFilesUnsafe keeps only the newest MaxFiles log files
func (l *EnhancedLogger) cleanOldFilesUnsafe() {
	pattern := l.config.FilenamePattern
	if pattern == "" {
		pattern = defaultFilenamePattern
	}
	for _, token := range []string{"YYYY", "MM", "DD", "HH"} {
		pattern = strings.ReplaceAll(pattern, token, "*")
	}
	ext := filepath.Ext(pattern)
	glob := strings.TrimSuffix(pattern, ext) + "*" + ext

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(l.fileName), glob))
	if err != nil || len(matches) <= l.config.MaxFiles {
		return
	}

	type fileInfo struct {
		path    string
		modTime time.Time
	}
	files := make([]fileInfo, 0, len(matches))
	for _, match := range matches {
		if info, err := os.Stat(match); err == nil {
			files = append(files, fileInfo{path: match, modTime: info.ModTime()})
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.After(files[j].modTime) })

	for i := l.config.MaxFiles; i < len(files); i++ {
		if files[i].path != l.fileName {
			os.Remove(files[i].path)
		}
	}
}

// Write implements io.Writer with a rotation check after each record
func (l *EnhancedLogger) Write(p []byte) (n int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, err = l.multiWriter.Write(p)
	if err != nil {
		return
	}
	l.fileSize += int64(n)

	if err := l.checkRotationUnsafe(); err != nil {
		fmt.Fprintf(os.Stderr, "Log rotation error: %v\n", err)
	}
	return
}

// FileName returns the active log file path, or "" when logging to console only
func (l *EnhancedLogger) FileName() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fileName
}

// Close closes the log file
func (l *EnhancedLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// SetOutput switches the global logger to a single log file, keeping console output.
func SetOutput(filename string, level string) error {
	return Initialize(Config{
		Enabled:         filename != "" && filename != "-",
		Directory:       filepath.Dir(filename),
		FilenamePattern: filepath.Base(filename),
		Level:           level,
		ConsoleOutput:   true,
	})
}

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	Get().Debug(fmt.Sprintf(format, args...))
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	Get().Info(fmt.Sprintf(format, args...))
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	Get().Warn(fmt.Sprintf(format, args...))
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	Get().Error(fmt.Sprintf(format, args...))
}

// Fatal logs a fatal message and exits
func Fatal(format string, args ...interface{}) {
	Get().Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}

// LogAPIRequest logs an outgoing API request
func LogAPIRequest(method, url string, headers map[string]string) {
	fields := []any{
		"method", method,
		"url", url,
		"type", "api_request",
	}
	if userAgent := headers["User-Agent"]; userAgent != "" {
		fields = append(fields, "user_agent", userAgent)
	}

	Get().LogAttrs(context.Background(), slog.LevelDebug, "API request started", slog.Group("request", fields...))
}

// LogAPIResponse logs an API response, escalating the level on HTTP errors
func LogAPIResponse(method, url string, statusCode int, duration string, bodySize int) {
	level := slog.LevelDebug
	if statusCode >= 400 {
		level = slog.LevelWarn
	}
	if statusCode >= 500 {
		level = slog.LevelError
	}

	Get().LogAttrs(context.Background(), level, "API request completed",
		slog.Group("request",
			"method", method,
			"url", url,
			"status_code", statusCode,
			"duration", duration,
			"body_size", bodySize,
			"type", "api_response",
		),
	)
}

// LogOperationStart logs the beginning of an operation and returns a completion function
func LogOperationStart(operation string, details map[string]any) func(error) {
	startTime := time.Now()

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("type", "operation_start"),
	}
	if len(details) > 0 {
		keys := make([]string, 0, len(details))
		for k := range details {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		detailAttrs := make([]any, 0, len(details)*2)
		for _, k := range keys {
			detailAttrs = append(detailAttrs, k, details[k])
		}
		attrs = append(attrs, slog.Group("details", detailAttrs...))
	}

	Get().LogAttrs(context.Background(), slog.LevelDebug, "Operation started", attrs...)

	return func(err error) {
		level := slog.LevelDebug
		message := "Operation completed"

		completionAttrs := []slog.Attr{
			slog.String("operation", operation),
			slog.String("type", "operation_complete"),
			slog.Duration("duration", time.Since(startTime)),
			slog.Bool("success", err == nil),
		}
		if err != nil {
			level = slog.LevelWarn
			message = "Operation failed"
			completionAttrs = append(completionAttrs, slog.String("error", err.Error()))
		}

		Get().LogAttrs(context.Background(), level, message, completionAttrs...)
	}
}

// LogWithFields logs a message with custom structured fields
func LogWithFields(level Level, message string, fields map[string]any) {
	slogLevel := slog.Level(level)
	if level == FatalLevel {
		slogLevel = slog.LevelError
	}

	attrs := make([]slog.Attr, 0, len(fields))
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].Key < attrs[j].Key })

	Get().LogAttrs(context.Background(), slogLevel, message, attrs...)

	if level == FatalLevel {
		os.Exit(1)
	}
}

// ParseLevel converts a string to a log level
func ParseLevel(levelStr string) (Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level: %s", levelStr)
	}
}

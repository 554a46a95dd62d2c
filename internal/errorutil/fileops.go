package errorutil

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// FileError represents a file operation error with additional context
type FileError struct {
	Operation  string // The operation that failed (e.g., "write", "mkdir")
	Path       string // The path that was being accessed
	Underlying error  // The underlying error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s operation failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

func (e *FileError) Unwrap() error {
	return e.Underlying
}

// NewFileError creates a new FileError
func NewFileError(operation, path string, err error) *FileError {
	return &FileError{
		Operation:  operation,
		Path:       path,
		Underlying: err,
	}
}

// LogFileError logs a file error with structured context and returns it
func LogFileError(logger *slog.Logger, fileErr *FileError) *FileError {
	if logger == nil || fileErr == nil {
		return fileErr
	}

	logger.Error("File operation failed",
		slog.String("operation", fileErr.Operation),
		slog.String("file_path", fileErr.Path),
		slog.String("error", fileErr.Underlying.Error()),
		slog.String("error_type", fileErrorType(fileErr.Underlying)))
	return fileErr
}

func fileErrorType(err error) string {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "file_not_found"
	case errors.Is(err, fs.ErrPermission):
		return "permission_denied"
	case errors.Is(err, fs.ErrExist):
		return "file_exists"
	}
	return "generic_file_error"
}

// SafeFileWrite creates the parent directory and writes data through a temp file
// renamed into place, so readers never observe a partial file.
func SafeFileWrite(logger *slog.Logger, path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return LogFileError(logger, NewFileError("mkdir", dir, err))
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return LogFileError(logger, NewFileError("write", tmp, err))
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return LogFileError(logger, NewFileError("rename", path, err))
	}
	return nil
}

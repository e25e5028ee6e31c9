package models

import "fmt"

// ErrorType represents different categories of errors
type ErrorType int

const (
	ErrConfig ErrorType = iota
	ErrMalformedDocument
	ErrUnsupportedChecksum
	ErrRepository
	ErrPackageAction
	ErrDownload
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrConfig:
		return "Config"
	case ErrMalformedDocument:
		return "MalformedDocument"
	case ErrUnsupportedChecksum:
		return "UnsupportedChecksum"
	case ErrRepository:
		return "Repository"
	case ErrPackageAction:
		return "PackageAction"
	case ErrDownload:
		return "Download"
	default:
		return "Unknown"
	}
}

// ManifestError represents an error during manifest resolution or replay.
// Subject names the file, package or repository the error is about.
type ManifestError struct {
	Type    ErrorType
	Subject string
	Err     error
}

// Error implements the error interface
func (e *ManifestError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Subject, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Type, e.Err)
}

// Unwrap returns the wrapped error
func (e *ManifestError) Unwrap() error {
	return e.Err
}

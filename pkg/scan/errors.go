package scan

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrServerFault is returned for storage failures the caller cannot fix.
	ErrServerFault = errors.New("Internal server error")
)

// ValidationError lists every field that made a scan unacceptable.
type ValidationError struct {
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	switch {
	case len(e.Missing) > 0 && len(e.Invalid) > 0:
		return fmt.Sprintf("Missing required fields: %s; invalid fields: %s",
			strings.Join(e.Missing, ", "), strings.Join(e.Invalid, ", "))
	case len(e.Missing) > 0:
		return "Missing required fields: " + strings.Join(e.Missing, ", ")
	default:
		return "Invalid fields: " + strings.Join(e.Invalid, ", ")
	}
}

// Empty reports whether nothing was flagged.
func (e *ValidationError) Empty() bool {
	return len(e.Missing) == 0 && len(e.Invalid) == 0
}

// OrNil returns nil when nothing was flagged so callers can return it directly.
func (e *ValidationError) OrNil() error {
	if e == nil || e.Empty() {
		return nil
	}
	return e
}

type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// TransientNetworkError wraps timeouts and connection failures. The operation may be retried.
type TransientNetworkError struct {
	Op  string
	Err error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientNetworkError) Unwrap() error {
	return e.Err
}

// StorageCorruption is reported when a local store cannot be parsed. It is never fatal.
type StorageCorruption struct {
	Path string
	Err  error
}

func (e *StorageCorruption) Error() string {
	return fmt.Sprintf("corrupt scan store %s: %v", e.Path, e.Err)
}

func (e *StorageCorruption) Unwrap() error {
	return e.Err
}

const (
	StageContext   = "context"
	StageScore     = "score"
	StageThumbnail = "thumbnail"
)

// AnalysisError names the pipeline stage that failed.
type AnalysisError struct {
	Stage string
	Err   error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed at %s stage: %v", e.Stage, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is worth retrying later.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var tne *TransientNetworkError
	if errors.As(err, &tne) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}

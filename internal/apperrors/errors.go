// Package apperrors holds the error taxonomy shared by the entry store, the media
// orchestrator and the HTTP layer. Match with errors.Is / errors.As.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrNotFound is returned by the gateway when a row does not exist or is not owned by the caller.
var ErrNotFound = errors.New("not found")

// ValidationError collects per-field problems found before any network call.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, reason string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, reason)
	return v
}

func (e *ValidationError) Add(field, reason string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = reason
	}
}

// Merge copies the fields of other into e, keeping reasons already present.
func (e *ValidationError) Merge(other *ValidationError) {
	if other == nil {
		return
	}
	for f, r := range other.Fields {
		e.Add(f, r)
	}
}

func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

// OrNil returns nil when no field failed, so callers can `return v.OrNil()`.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AuthError means there is no current user for a write.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	if e.Reason == "" {
		return "user not authenticated"
	}
	return "user not authenticated: " + e.Reason
}

// GatewayError wraps a failed record-store or object-store call.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Gateway wraps err as a GatewayError unless it is nil, already a GatewayError, or ErrNotFound.
func Gateway(op string, err error) error {
	if err == nil {
		return nil
	}
	var ge *GatewayError
	if errors.As(err, &ge) || errors.Is(err, ErrNotFound) {
		return err
	}
	return &GatewayError{Op: op, Err: err}
}

// MetadataError means an uploaded object could not be decoded. The object stays in storage.
type MetadataError struct {
	StoragePath string
	Err         error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("read media metadata for %s: %v", e.StoragePath, e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }

// FileFailure describes one media file that did not make it into the entry.
type FileFailure struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Err   error  `json:"-"`
}

// PartialUploadError means the entry was persisted but the media batch stopped early.
type PartialUploadError struct {
	EntryID  string
	Uploaded int
	Skipped  int
	Failures []FileFailure
}

func (e *PartialUploadError) Error() string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, fmt.Sprintf("%s (%v)", f.Name, f.Err))
	}
	return fmt.Sprintf("entry %s saved with %d media, %d skipped, failed: %s",
		e.EntryID, e.Uploaded, e.Skipped, strings.Join(names, ", "))
}

func (e *PartialUploadError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// UserMessage turns any error into the single notification shown to the user.
func UserMessage(err error) string {
	var (
		ve *ValidationError
		ae *AuthError
		pe *PartialUploadError
		me *MetadataError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pe):
		return "Entry saved, but some media failed to upload. Edit the entry to add them again."
	case errors.As(err, &ve):
		return "Please fix the highlighted fields"
	case errors.As(err, &me):
		return "The file could not be read. Please choose a different photo or video."
	case errors.As(err, &ae):
		return "You must be logged in to save entries"
	case errors.Is(err, ErrNotFound):
		return "Entry not found or access denied"
	default:
		return "Something went wrong. Please try again."
	}
}

// HTTPStatus maps the taxonomy onto response codes.
func HTTPStatus(err error) int {
	var (
		ve *ValidationError
		ae *AuthError
		pe *PartialUploadError
		ge *GatewayError
		me *MetadataError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &pe):
		return http.StatusMultiStatus
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &me):
		return http.StatusUnprocessableEntity
	case errors.As(err, &ae):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &ge):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

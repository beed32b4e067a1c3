package repository

import (
	"errors"
	"fmt"
	"sort"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-entity-repository/entity"
)

// Text codes attached to repository errors.
const (
	TextCodeValidationFailed = "VALIDATION_FAILED"
	TextCodeCreateFailed     = "CREATE_FAILED"
	TextCodeUpdateFailed     = "UPDATE_FAILED"
	TextCodeRecordNotFound   = "RECORD_NOT_FOUND"
	TextCodeStoreFailed      = "STORE_FAILED"
)

const (
	defaultCreateMessage = "failed to create record"
	defaultUpdateMessage = "failed to update record"
)

// NewValidationFailed builds the error raised when a record fails
// validation before a write. Each message becomes a field error and the raw
// map is kept in the metadata under "errors".
func NewValidationFailed(errs map[string][]string) error {
	properties := make([]string, 0, len(errs))
	for p := range errs {
		properties = append(properties, p)
	}
	sort.Strings(properties)

	var fields []goerrors.FieldError
	for _, p := range properties {
		for _, msg := range errs[p] {
			fields = append(fields, goerrors.FieldError{Field: p, Message: msg})
		}
	}

	return goerrors.NewValidation("validation failed", fields...).
		WithTextCode(TextCodeValidationFailed).
		WithMetadata(map[string]any{"errors": errs})
}

// NewCreateFailed builds the error raised when the store does not report a
// created document. An empty message falls back to a generic one.
func NewCreateFailed(message string) error {
	if message == "" {
		message = defaultCreateMessage
	}
	return goerrors.New(message, goerrors.CategoryOperation).WithTextCode(TextCodeCreateFailed)
}

// NewUpdateFailed builds the error raised when the store rejects an update.
func NewUpdateFailed(message string) error {
	if message == "" {
		message = defaultUpdateMessage
	}
	return goerrors.New(message, goerrors.CategoryOperation).WithTextCode(TextCodeUpdateFailed)
}

// NewRecordNotFound builds the error for callers that require a record.
func NewRecordNotFound(index, id string) error {
	return goerrors.New(fmt.Sprintf("record %q not found in %s", id, index), goerrors.CategoryNotFound).
		WithTextCode(TextCodeRecordNotFound).
		WithMetadata(map[string]any{"index": index, "id": id})
}

func storeFailed(err error, op, index string) error {
	return goerrors.Wrap(err, goerrors.CategoryExternal, fmt.Sprintf("%s on %s failed", op, index)).
		WithTextCode(TextCodeStoreFailed)
}

// IsValidationFailed reports whether err is a validation failure.
func IsValidationFailed(err error) bool {
	return entity.HasTextCode(err, TextCodeValidationFailed)
}

// IsCreateFailed reports whether err is a store rejected insert.
func IsCreateFailed(err error) bool {
	return entity.HasTextCode(err, TextCodeCreateFailed)
}

// IsUpdateFailed reports whether err is a store rejected update.
func IsUpdateFailed(err error) bool {
	return entity.HasTextCode(err, TextCodeUpdateFailed)
}

// IsRecordNotFound reports whether err signals a missing record.
func IsRecordNotFound(err error) bool {
	return entity.HasTextCode(err, TextCodeRecordNotFound)
}

// IsStoreFailed reports whether err wraps a store transport failure.
func IsStoreFailed(err error) bool {
	return entity.HasTextCode(err, TextCodeStoreFailed)
}

// ValidationErrors extracts the per property messages carried by a
// validation failure.
func ValidationErrors(err error) map[string][]string {
	var e *goerrors.Error
	if !errors.As(err, &e) || e.TextCode != TextCodeValidationFailed {
		return nil
	}
	if errs, ok := e.Metadata["errors"].(map[string][]string); ok {
		return errs
	}
	return nil
}

// RequireFound turns a zero record into RecordNotFound.
func RequireFound[T entity.Record](rec T, index, id string) (T, error) {
	if isNil(rec) {
		return rec, NewRecordNotFound(index, id)
	}
	return rec, nil
}

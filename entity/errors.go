package entity

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to the structured errors raised by this package.
const (
	TextCodeInvalidEntity    = "INVALID_ENTITY"
	TextCodePropertyNotFound = "PROPERTY_NOT_FOUND"
)

func invalidEntity(format string, args ...any) error {
	return goerrors.New(fmt.Sprintf(format, args...), goerrors.CategoryBadInput).
		WithTextCode(TextCodeInvalidEntity)
}

func propertyNotFound(property string, target any) error {
	return goerrors.New(fmt.Sprintf("property %q not found on %T", property, target), goerrors.CategoryBadInput).
		WithTextCode(TextCodePropertyNotFound).
		WithMetadata(map[string]any{"property": property})
}

// HasTextCode reports whether err wraps a structured error with the given text code.
func HasTextCode(err error, code string) bool {
	var e *goerrors.Error
	return errors.As(err, &e) && e.TextCode == code
}

// IsInvalidEntity reports whether err was raised for an undeclared or
// mistyped property.
func IsInvalidEntity(err error) bool {
	return HasTextCode(err, TextCodeInvalidEntity)
}

// IsPropertyNotFound reports whether err was raised by a failed named
// property lookup.
func IsPropertyNotFound(err error) bool {
	return HasTextCode(err, TextCodePropertyNotFound)
}

// NewInvalidEntity builds an InvalidEntity error for callers outside the
// package.
func NewInvalidEntity(format string, args ...any) error {
	return invalidEntity(format, args...)
}

package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("already exists")
	ErrProviderTimeout     = errors.New("hotels provider: timeout")
	ErrProviderEmptyResult = errors.New("hotels provider: empty result")
	ErrProviderUnavailable = errors.New("hotels provider: unavailable")
)

// ValidationError reports bad user input or an incomplete query.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type ProviderBadResponseError struct {
	StatusCode int
}

func (e *ProviderBadResponseError) Error() string {
	return fmt.Sprintf("hotels provider: bad status %d", e.StatusCode)
}

// MalformedRecordError is returned when a provider record lacks a required field.
type MalformedRecordError struct {
	Field string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record: missing or invalid %s", e.Field)
}

// IsProviderError reports whether err comes from the provider failure taxonomy.
func IsProviderError(err error) bool {
	var bad *ProviderBadResponseError
	return errors.Is(err, ErrProviderTimeout) ||
		errors.Is(err, ErrProviderEmptyResult) ||
		errors.Is(err, ErrProviderUnavailable) ||
		errors.As(err, &bad)
}

package search

import (
	"errors"

	"github.com/camara12-arth/weather-app/internal/weather"
)

// ErrNoLocation is returned by a submission without a resolvable location.
var ErrNoLocation = errors.New("no location selected")

// ErrorKind tells clients how to present a failure.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindTransient  ErrorKind = "transient"
)

// ViewError is the single user-visible error of a session.
type ViewError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// classify maps an orchestration failure to what the user sees.
func classify(err error) *ViewError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNoLocation):
		return &ViewError{Kind: KindValidation, Message: "Select a city from the suggestions."}
	case errors.Is(err, weather.ErrNotFound):
		return &ViewError{Kind: KindNotFound, Message: "City not found. Try another name."}
	default:
		return &ViewError{Kind: KindTransient, Message: "Weather service unavailable. Check your connection and try again."}
	}
}

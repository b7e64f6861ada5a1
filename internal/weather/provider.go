package weather

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a lookup or forecast has no match.
	ErrNotFound = errors.New("location not found")
	// ErrTransient covers network and upstream service failures.
	ErrTransient = errors.New("weather service unavailable")
)

// Geocoder turns free text into ranked location suggestions.
type Geocoder interface {
	Name() string
	Lookup(ctx context.Context, query string, limit int) ([]Suggestion, error)
}

// ForecastFetcher abstracts a forecast data source keyed by coordinates.
type ForecastFetcher interface {
	Name() string
	FetchForecast(ctx context.Context, lat, lon float64) (ProviderForecast, error)
}

// ReverseGeocoder names the place at a coordinate pair. Geocoders that can
// do so implement it alongside Geocoder.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (Suggestion, error)
}

package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/camara12-arth/weather-app/internal/common"
	"github.com/camara12-arth/weather-app/internal/weather"
	"github.com/kelvins/geocoder"
)

// geocoder.ApiKey is package global; serialize access to it.
var googleMu sync.Mutex

// GoogleGeocoder resolves free text with the Google Geocoding API. It only
// yields the single best match, so it works best as a fallback geocoder.
type GoogleGeocoder struct {
	name    string
	apiKey  string
	forward func(geocoder.Address) (geocoder.Location, error)
	reverse func(geocoder.Location) ([]geocoder.Address, error)
}

func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{
		name:    "google",
		apiKey:  apiKey,
		forward: geocoder.Geocoding,
		reverse: geocoder.GeocodingReverse,
	}
}

func (g *GoogleGeocoder) Name() string {
	return g.name
}

type googleResult struct {
	suggestion weather.Suggestion
	err        error
}

// Lookup runs the blocking library calls on a goroutine so ctx is honoured.
func (g *GoogleGeocoder) Lookup(ctx context.Context, query string, _ int) ([]weather.Suggestion, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("google geocoding api key is not configured: %w", weather.ErrTransient)
	}

	done := make(chan googleResult, 1)
	go func() {
		s, err := g.resolve(query)
		done <- googleResult{suggestion: s, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return []weather.Suggestion{r.suggestion}, nil
	}
}

func (g *GoogleGeocoder) resolve(query string) (weather.Suggestion, error) {
	googleMu.Lock()
	defer googleMu.Unlock()
	geocoder.ApiKey = g.apiKey

	loc, err := g.forward(geocoder.Address{City: query})
	if err != nil {
		return weather.Suggestion{}, classifyGoogleError(query, err)
	}

	s := weather.Suggestion{
		Name: query,
		Lat:  float64Ptr(loc.Latitude),
		Lon:  float64Ptr(loc.Longitude),
	}

	// Reverse lookup only enriches the label; its failure is not fatal.
	if addrs, err := g.reverse(loc); err == nil && len(addrs) > 0 {
		a := addrs[0]
		s.Name = common.FirstNonEmpty(a.City, a.County, query)
		s.Country = a.Country
		s.State = a.State
	}
	return s, nil
}

// Reverse names the place at a coordinate pair.
func (g *GoogleGeocoder) Reverse(ctx context.Context, lat, lon float64) (weather.Suggestion, error) {
	if g.apiKey == "" {
		return weather.Suggestion{}, fmt.Errorf("google geocoding api key is not configured: %w", weather.ErrTransient)
	}

	done := make(chan googleResult, 1)
	go func() {
		googleMu.Lock()
		defer googleMu.Unlock()
		geocoder.ApiKey = g.apiKey

		addrs, err := g.reverse(geocoder.Location{Latitude: lat, Longitude: lon})
		if err != nil {
			done <- googleResult{err: classifyGoogleError(fmt.Sprintf("%.4f,%.4f", lat, lon), err)}
			return
		}
		if len(addrs) == 0 {
			done <- googleResult{err: fmt.Errorf("google: no place at %.4f,%.4f: %w", lat, lon, weather.ErrNotFound)}
			return
		}
		a := addrs[0]
		done <- googleResult{suggestion: weather.Suggestion{
			Name:    common.FirstNonEmpty(a.City, a.County, a.State),
			Country: a.Country,
			State:   a.State,
			Lat:     float64Ptr(lat),
			Lon:     float64Ptr(lon),
		}}
	}()

	select {
	case <-ctx.Done():
		return weather.Suggestion{}, ctx.Err()
	case r := <-done:
		return r.suggestion, r.err
	}
}

func classifyGoogleError(query string, err error) error {
	msg := strings.ToLower(err.Error())
	if common.HasAny(msg, "zero_results", "no results", "not found") {
		return fmt.Errorf("google: no match for %q: %w", query, weather.ErrNotFound)
	}
	return fmt.Errorf("%w: google: %v", weather.ErrTransient, err)
}

var (
	_ weather.Geocoder        = (*GoogleGeocoder)(nil)
	_ weather.ReverseGeocoder = (*GoogleGeocoder)(nil)
)

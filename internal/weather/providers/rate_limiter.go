package providers

import (
	"context"
	"fmt"

	"github.com/camara12-arth/weather-app/internal/weather"

	"golang.org/x/time/rate"
)

// RateLimitedGeocoder wraps a Geocoder with rate limiting. Suggestion
// lookups follow keystrokes, so free tier quotas are easy to exhaust.
type RateLimitedGeocoder struct {
	geocoder weather.Geocoder
	limiter  *rate.Limiter
	name     string
}

// NewRateLimitedGeocoder creates a new rate limited geocoder.
// rps is the maximum requests per second allowed (can be fractional)
// burst is the maximum burst size allowed
func NewRateLimitedGeocoder(g weather.Geocoder, rps float64, burst int) *RateLimitedGeocoder {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedGeocoder{
		geocoder: g,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		name:     fmt.Sprintf("%s [Rate Limited]", g.Name()),
	}
}

// Lookup waits for limiter permission, then forwards to the wrapped geocoder.
func (r *RateLimitedGeocoder) Lookup(ctx context.Context, query string, limit int) ([]weather.Suggestion, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: rate limit wait canceled: %v", weather.ErrTransient, err)
	}
	return r.geocoder.Lookup(ctx, query, limit)
}

// Reverse forwards to the wrapped geocoder when it supports reverse lookups,
// under the same limiter as Lookup.
func (r *RateLimitedGeocoder) Reverse(ctx context.Context, lat, lon float64) (weather.Suggestion, error) {
	rev, ok := r.geocoder.(weather.ReverseGeocoder)
	if !ok {
		return weather.Suggestion{}, fmt.Errorf("%s does not reverse geocode: %w", r.geocoder.Name(), weather.ErrNotFound)
	}
	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return weather.Suggestion{}, ctx.Err()
		}
		return weather.Suggestion{}, fmt.Errorf("%w: rate limit wait canceled: %v", weather.ErrTransient, err)
	}
	return rev.Reverse(ctx, lat, lon)
}

// Name returns the geocoder name
func (r *RateLimitedGeocoder) Name() string {
	return r.name
}

var (
	_ weather.Geocoder        = (*RateLimitedGeocoder)(nil)
	_ weather.ReverseGeocoder = (*RateLimitedGeocoder)(nil)
)

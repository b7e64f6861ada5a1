package weather

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// Service fronts the configured providers. Geocoders are tried in order
// until one returns matches; the forecast comes from a single fetcher.
// Service itself satisfies Geocoder and ForecastFetcher so sessions can use
// it as their only collaborator.
type Service struct {
	geocoders []Geocoder
	forecasts ForecastFetcher
	window    int
}

// NewService creates a new Service.
func NewService(geocoders []Geocoder, forecasts ForecastFetcher, window int) *Service {
	if window <= 0 {
		window = DefaultForecastWindow
	}
	return &Service{
		geocoders: geocoders,
		forecasts: forecasts,
		window:    window,
	}
}

func (s *Service) Name() string {
	return "service"
}

// Window is the number of samples kept by Forecast.
func (s *Service) Window() int {
	return s.window
}

// Lookup queries geocoders in order. A NotFound from one provider falls
// through to the next; if every provider fails, the result is NotFound only
// when all of them said so, otherwise Transient.
func (s *Service) Lookup(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query: %w", ErrNotFound)
	}
	if len(s.geocoders) == 0 {
		log.Printf("ERROR: no geocoders configured for lookup %q", query)
		return nil, fmt.Errorf("no geocoders configured: %w", ErrTransient)
	}

	log.Printf("DEBUG: Lookup called for %q with %d geocoders", query, len(s.geocoders))

	allNotFound := true
	var lastErr error
	for _, g := range s.geocoders {
		res, err := g.Lookup(ctx, query, limit)
		if err == nil && len(res) > 0 {
			if limit > 0 && len(res) > limit {
				res = res[:limit]
			}
			return res, nil
		}
		if err == nil {
			err = fmt.Errorf("%s: no match for %q: %w", g.Name(), query, ErrNotFound)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		log.Printf("geocoder %s lookup failed for %q: %v", g.Name(), query, err)
		if !errors.Is(err, ErrNotFound) {
			allNotFound = false
		}
		lastErr = err
	}

	if allNotFound {
		return nil, fmt.Errorf("no match for %q: %w", query, ErrNotFound)
	}
	return nil, classify(lastErr)
}

// FetchForecast returns the unbounded provider forecast for a coordinate pair.
func (s *Service) FetchForecast(ctx context.Context, lat, lon float64) (ProviderForecast, error) {
	if s.forecasts == nil {
		log.Printf("ERROR: no forecast provider configured")
		return ProviderForecast{}, fmt.Errorf("no forecast provider configured: %w", ErrTransient)
	}

	log.Printf("DEBUG: FetchForecast called for %.4f,%.4f via %s", lat, lon, s.forecasts.Name())

	raw, err := s.forecasts.FetchForecast(ctx, lat, lon)
	if err != nil {
		if ctx.Err() != nil {
			return ProviderForecast{}, ctx.Err()
		}
		log.Printf("provider %s forecast failed for %.4f,%.4f: %v", s.forecasts.Name(), lat, lon, err)
		return ProviderForecast{}, classify(err)
	}
	if len(raw.Samples) == 0 {
		return ProviderForecast{}, fmt.Errorf("%s returned no samples: %w", s.forecasts.Name(), ErrNotFound)
	}
	return raw, nil
}

// Forecast fetches and shapes a forecast in one call. Providers that answer
// by coordinates only (Open-Meteo) leave the label empty; it is then filled
// from the first geocoder able to reverse geocode, on a best-effort basis.
func (s *Service) Forecast(ctx context.Context, lat, lon float64) (ForecastSnapshot, error) {
	raw, err := s.FetchForecast(ctx, lat, lon)
	if err != nil {
		return ForecastSnapshot{}, err
	}
	snap := ShapeForecast(raw, s.window)
	if snap.LocationLabel == "" {
		if place, ok := s.reverse(ctx, lat, lon); ok {
			snap.LocationLabel = place.Name
			if snap.Country == "" {
				snap.Country = place.Country
			}
		}
	}
	return snap, nil
}

// Reverse asks each geocoder that supports it in order.
func (s *Service) Reverse(ctx context.Context, lat, lon float64) (Suggestion, error) {
	if place, ok := s.reverse(ctx, lat, lon); ok {
		return place, nil
	}
	return Suggestion{}, fmt.Errorf("no place name for %.4f,%.4f: %w", lat, lon, ErrNotFound)
}

func (s *Service) reverse(ctx context.Context, lat, lon float64) (Suggestion, bool) {
	for _, g := range s.geocoders {
		r, ok := g.(ReverseGeocoder)
		if !ok {
			continue
		}
		place, err := r.Reverse(ctx, lat, lon)
		if err == nil && place.Name != "" {
			return place, true
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			log.Printf("DEBUG: reverse geocoding via %s failed for %.4f,%.4f: %v", g.Name(), lat, lon, err)
		}
		if ctx.Err() != nil {
			return Suggestion{}, false
		}
	}
	return Suggestion{}, false
}

// classify makes sure every provider error carries one of the taxonomy
// sentinels; anything unrecognised is treated as transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrTransient) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}

var (
	_ Geocoder        = (*Service)(nil)
	_ ForecastFetcher = (*Service)(nil)
	_ ReverseGeocoder = (*Service)(nil)
)

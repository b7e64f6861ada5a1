package weather

import (
	"context"
	"errors"
	"testing"
	"time"
)

func samples(n int) []WeatherSample {
	base := time.Date(2026, 10, 17, 9, 0, 0, 0, time.FixedZone("WAT", 3600))
	out := make([]WeatherSample, n)
	for i := range out {
		out[i] = WeatherSample{Timestamp: base.Add(time.Duration(i) * 3 * time.Hour), Temperature: float64(i)}
	}
	return out
}

func TestShapeForecastTruncatesToWindow(t *testing.T) {
	raw := ProviderForecast{
		ProviderName:  "test",
		LocationLabel: "Bamako",
		Country:       "ML",
		Sunrise:       time.Unix(1760680800, 0),
		Sunset:        time.Unix(1760723400, 0),
		Samples:       samples(40),
	}

	snap := ShapeForecast(raw, 16)

	if len(snap.Samples) != 16 {
		t.Fatalf("expected 16 samples, got %d", len(snap.Samples))
	}
	if !snap.Samples[0].Timestamp.Equal(raw.Samples[0].Timestamp) || snap.Samples[0].Temperature != 0 {
		t.Fatalf("samples[0] must be the first provider entry, got %+v", snap.Samples[0])
	}
	if snap.Samples[0].Timestamp.Location() != time.UTC {
		t.Fatalf("timestamps must be normalized to UTC")
	}
	if snap.LocationLabel != "Bamako" || snap.Country != "ML" || !snap.Sunrise.Equal(raw.Sunrise) || !snap.Sunset.Equal(raw.Sunset) {
		t.Fatalf("envelope metadata not retained: %+v", snap)
	}
	if snap.Samples[3].Condition != ConditionUnknown {
		t.Fatalf("empty condition should default to unknown")
	}

	// The snapshot must not alias the provider slice.
	snap.Samples[1].Temperature = 99
	if raw.Samples[1].Temperature == 99 {
		t.Fatalf("snapshot aliases provider samples")
	}
}

func TestShapeForecastShortSeries(t *testing.T) {
	snap := ShapeForecast(ProviderForecast{Samples: samples(3)}, 16)
	if len(snap.Samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(snap.Samples))
	}

	if _, ok := ShapeForecast(ProviderForecast{}, 16).Current(); ok {
		t.Fatalf("empty forecast has no current reading")
	}
}

func TestShapeForecastDefaultWindow(t *testing.T) {
	snap := ShapeForecast(ProviderForecast{Samples: samples(40)}, 0)
	if len(snap.Samples) != DefaultForecastWindow {
		t.Fatalf("expected default window %d, got %d", DefaultForecastWindow, len(snap.Samples))
	}
}

func TestSuggestionKeyFallsBackToIndex(t *testing.T) {
	lat, lon := 12.65, -8.0
	with := Suggestion{Name: "Bamako", Country: "ML", Lat: &lat, Lon: &lon}
	without := Suggestion{Name: "Bamako"}

	if got := with.Key(3); got != "12.65--8" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := without.Key(3); got != "3" {
		t.Fatalf("expected positional fallback, got %q", got)
	}
	if got := without.Label(); got != "Bamako" {
		t.Fatalf("unexpected label %q", got)
	}
}

type fakeGeocoder struct {
	name string
	res  []Suggestion
	err  error
	hits int
}

func (g *fakeGeocoder) Name() string { return g.name }

func (g *fakeGeocoder) Lookup(context.Context, string, int) ([]Suggestion, error) {
	g.hits++
	return g.res, g.err
}

func TestServiceLookupFallsThroughNotFound(t *testing.T) {
	first := &fakeGeocoder{name: "first", err: ErrNotFound}
	second := &fakeGeocoder{name: "second", res: []Suggestion{{Name: "Bamako"}, {Name: "Bamba"}}}
	svc := NewService([]Geocoder{first, second}, nil, 16)

	res, err := svc.Lookup(context.Background(), " Bam ", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 1 || res[0].Name != "Bamako" {
		t.Fatalf("unexpected result %+v", res)
	}
	if first.hits != 1 || second.hits != 1 {
		t.Fatalf("expected both geocoders to be tried")
	}
}

func TestServiceLookupClassifiesFailures(t *testing.T) {
	svc := NewService([]Geocoder{
		&fakeGeocoder{name: "a", err: ErrNotFound},
		&fakeGeocoder{name: "b", err: errors.New("connection refused")},
	}, nil, 16)

	_, err := svc.Lookup(context.Background(), "Bam", 5)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}

	svc = NewService([]Geocoder{&fakeGeocoder{name: "a", err: ErrNotFound}, &fakeGeocoder{name: "b"}}, nil, 16)
	_, err = svc.Lookup(context.Background(), "Bam", 5)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type fakeFetcher struct {
	raw ProviderForecast
	err error
}

func (f *fakeFetcher) Name() string { return "fake" }

func (f *fakeFetcher) FetchForecast(context.Context, float64, float64) (ProviderForecast, error) {
	return f.raw, f.err
}

func TestServiceForecastShapes(t *testing.T) {
	svc := NewService(nil, &fakeFetcher{raw: ProviderForecast{Samples: samples(40)}}, 16)

	snap, err := svc.Forecast(context.Background(), 12.65, -8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Samples) != 16 {
		t.Fatalf("expected 16 samples, got %d", len(snap.Samples))
	}

	svc = NewService(nil, &fakeFetcher{err: errors.New("boom")}, 16)
	if _, err := svc.Forecast(context.Background(), 12.65, -8); !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient, got %v", err)
	}

	svc = NewService(nil, &fakeFetcher{}, 16)
	if _, err := svc.Forecast(context.Background(), 12.65, -8); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for empty series, got %v", err)
	}
}

type fakeReverseGeocoder struct {
	fakeGeocoder
	place Suggestion
	err   error
	calls int
}

func (g *fakeReverseGeocoder) Reverse(context.Context, float64, float64) (Suggestion, error) {
	g.calls++
	return g.place, g.err
}

func TestServiceForecastFillsMissingLabelByReverseLookup(t *testing.T) {
	plain := &fakeGeocoder{name: "plain"}
	failing := &fakeReverseGeocoder{fakeGeocoder: fakeGeocoder{name: "failing"}, err: ErrTransient}
	named := &fakeReverseGeocoder{fakeGeocoder: fakeGeocoder{name: "named"}, place: Suggestion{Name: "Bamako", Country: "ML"}}
	svc := NewService([]Geocoder{plain, failing, named}, &fakeFetcher{raw: ProviderForecast{Samples: samples(3)}}, 16)

	snap, err := svc.Forecast(context.Background(), 12.65, -8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.LocationLabel != "Bamako" || snap.Country != "ML" {
		t.Fatalf("expected label from reverse lookup, got %q %q", snap.LocationLabel, snap.Country)
	}
	if failing.calls != 1 || named.calls != 1 {
		t.Fatalf("expected reverse geocoders to be tried in order")
	}
}

func TestServiceForecastKeepsProviderLabel(t *testing.T) {
	named := &fakeReverseGeocoder{fakeGeocoder: fakeGeocoder{name: "named"}, place: Suggestion{Name: "Elsewhere"}}
	raw := ProviderForecast{LocationLabel: "Bamako", Country: "ML", Samples: samples(3)}
	svc := NewService([]Geocoder{named}, &fakeFetcher{raw: raw}, 16)

	snap, err := svc.Forecast(context.Background(), 12.65, -8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.LocationLabel != "Bamako" || named.calls != 0 {
		t.Fatalf("provider label must win without a reverse lookup, got %q (%d calls)", snap.LocationLabel, named.calls)
	}
}

func TestServiceForecastWithoutReverseGeocoderLeavesLabelEmpty(t *testing.T) {
	svc := NewService([]Geocoder{&fakeGeocoder{name: "plain"}}, &fakeFetcher{raw: ProviderForecast{Samples: samples(3)}}, 16)

	snap, err := svc.Forecast(context.Background(), 12.65, -8)
	if err != nil {
		t.Fatalf("a missing label must not fail the forecast: %v", err)
	}
	if snap.LocationLabel != "" {
		t.Fatalf("unexpected label %q", snap.LocationLabel)
	}
	if _, err := svc.Reverse(context.Background(), 12.65, -8); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found from Reverse, got %v", err)
	}
}

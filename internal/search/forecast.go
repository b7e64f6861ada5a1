package search

import (
	"context"
	"fmt"
	"log"

	"github.com/camara12-arth/weather-app/internal/common"
	"github.com/camara12-arth/weather-app/internal/weather"
)

// Phase is the forecast fetch lifecycle: Idle → Loading → {Loaded | Error} → Loading → …
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseLoaded  Phase = "loaded"
	PhaseError   Phase = "error"
)

// ForecastOrchestrator owns the forecast fetch lifecycle. All methods must
// be called on the executor's loop.
type ForecastOrchestrator struct {
	exec     Executor
	fetcher  weather.ForecastFetcher
	window   int
	onChange func()

	phase    Phase
	snapshot *weather.ForecastSnapshot
	err      *ViewError

	gen      generation
	inflight context.CancelFunc
}

func NewForecastOrchestrator(exec Executor, f weather.ForecastFetcher, window int, onChange func()) *ForecastOrchestrator {
	if window <= 0 {
		window = weather.DefaultForecastWindow
	}
	return &ForecastOrchestrator{
		exec:     exec,
		fetcher:  f,
		window:   window,
		onChange: onChange,
		phase:    PhaseIdle,
	}
}

// Submit starts a forecast fetch for the selected location. Without a
// selection carrying coordinates it fails fast with a validation error and
// no request is made. Submitting is allowed in every phase; an earlier
// request in flight becomes stale.
func (o *ForecastOrchestrator) Submit(selected *weather.Suggestion) {
	o.cancelInflight()
	o.snapshot = nil

	if selected == nil {
		o.fail(o.gen.next(), fmt.Errorf("submit without selection: %w", ErrNoLocation))
		return
	}
	lat, lon, ok := selected.Coordinates()
	if !ok {
		o.fail(o.gen.next(), fmt.Errorf("selection %q has no coordinates: %w", selected.Name, ErrNoLocation))
		return
	}

	token := o.gen.next()
	o.phase = PhaseLoading
	o.err = nil
	o.changed()

	f := o.fetcher
	label, country := selected.Name, selected.Country
	o.inflight = o.exec.Go(func(ctx context.Context) func() {
		raw, err := f.FetchForecast(ctx, lat, lon)
		return func() { o.complete(token, label, country, raw, err) }
	})
}

// Close makes any in-flight fetch stale and releases it.
func (o *ForecastOrchestrator) Close() {
	o.gen.invalidate()
	o.cancelInflight()
}

func (o *ForecastOrchestrator) complete(token uint64, label, country string, raw weather.ProviderForecast, err error) {
	if !o.gen.current(token) {
		return
	}
	o.cancelInflight()

	if err != nil {
		o.fail(token, err)
		return
	}

	snap := weather.ShapeForecast(raw, o.window)
	// Some providers answer by coordinates only; fall back to the pick.
	snap.LocationLabel = common.FirstNonEmpty(snap.LocationLabel, label)
	snap.Country = common.FirstNonEmpty(snap.Country, country)

	o.snapshot = &snap
	o.phase = PhaseLoaded
	o.err = nil
	o.changed()
}

func (o *ForecastOrchestrator) fail(token uint64, err error) {
	if !o.gen.current(token) {
		return
	}
	log.Printf("WARN: forecast request failed: %v", err)
	o.phase = PhaseError
	o.err = classify(err)
	o.changed()
}

func (o *ForecastOrchestrator) Phase() Phase {
	return o.phase
}

// Snapshot returns the loaded forecast or nil.
func (o *ForecastOrchestrator) Snapshot() *weather.ForecastSnapshot {
	return o.snapshot
}

// Err returns the current user-visible error or nil.
func (o *ForecastOrchestrator) Err() *ViewError {
	return o.err
}

func (o *ForecastOrchestrator) cancelInflight() {
	if o.inflight != nil {
		o.inflight()
		o.inflight = nil
	}
}

func (o *ForecastOrchestrator) changed() {
	if o.onChange != nil {
		o.onChange()
	}
}

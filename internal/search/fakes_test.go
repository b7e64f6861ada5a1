package search

import (
	"context"
	"sync"
	"time"

	"github.com/camara12-arth/weather-app/internal/weather"
)

// fakeExecutor gives tests full control over timer firing and over the
// order in which asynchronous work completes.
type fakeExecutor struct {
	timers []*fakeTimer
	jobs   []*fakeJob
}

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

type fakeJob struct {
	work     func(ctx context.Context) func()
	ctx      context.Context
	resolved bool
}

func (e *fakeExecutor) AfterFunc(d time.Duration, fn func()) Timer {
	t := &fakeTimer{delay: d, fn: fn}
	e.timers = append(e.timers, t)
	return t
}

func (e *fakeExecutor) Go(work func(ctx context.Context) func()) context.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	e.jobs = append(e.jobs, &fakeJob{work: work, ctx: ctx})
	return cancel
}

// fireTimers fires every armed timer, as if the debounce interval elapsed.
func (e *fakeExecutor) fireTimers() int {
	n := 0
	for _, t := range e.timers {
		if t.stopped || t.fired {
			continue
		}
		t.fired = true
		t.fn()
		n++
	}
	return n
}

func (e *fakeExecutor) armedTimers() int {
	n := 0
	for _, t := range e.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// resolve runs job i's network call and then its completion on the
// "loop" (the test goroutine).
func (e *fakeExecutor) resolve(i int) {
	j := e.jobs[i]
	if j.resolved {
		panic("job resolved twice")
	}
	j.resolved = true
	if done := j.work(j.ctx); done != nil {
		done()
	}
}

// stubGeocoder answers from a table and records queries.
type stubGeocoder struct {
	mu      sync.Mutex
	results map[string][]weather.Suggestion
	errs    map[string]error
	queries []string
	block   chan struct{}
}

func (g *stubGeocoder) Name() string { return "stub" }

func (g *stubGeocoder) Lookup(ctx context.Context, query string, _ int) ([]weather.Suggestion, error) {
	g.mu.Lock()
	g.queries = append(g.queries, query)
	block := g.block
	g.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err, ok := g.errs[query]; ok {
		return nil, err
	}
	res, ok := g.results[query]
	if !ok {
		return nil, weather.ErrNotFound
	}
	return res, nil
}

func (g *stubGeocoder) calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.queries...)
}

type fetchCall struct {
	lat, lon float64
}

// stubFetcher returns a canned forecast or error and records calls.
type stubFetcher struct {
	mu       sync.Mutex
	forecast weather.ProviderForecast
	err      error
	calls    []fetchCall
}

func (f *stubFetcher) Name() string { return "stub" }

func (f *stubFetcher) FetchForecast(_ context.Context, lat, lon float64) (weather.ProviderForecast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fetchCall{lat, lon})
	if f.err != nil {
		return weather.ProviderForecast{}, f.err
	}
	return f.forecast, nil
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func ptr(v float64) *float64 { return &v }

func bamako() weather.Suggestion {
	return weather.Suggestion{Name: "Bamako", Country: "ML", Lat: ptr(12.65), Lon: ptr(-8.0)}
}

func forecastWithSamples(n int) weather.ProviderForecast {
	base := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	samples := make([]weather.WeatherSample, n)
	for i := range samples {
		samples[i] = weather.WeatherSample{
			Timestamp:   base.Add(time.Duration(i) * 3 * time.Hour),
			Temperature: 30 + float64(i)/10,
			Condition:   weather.ConditionClear,
		}
	}
	return weather.ProviderForecast{
		ProviderName:  "stub",
		LocationLabel: "Bamako",
		Country:       "ML",
		Sunrise:       base.Add(-6 * time.Hour),
		Sunset:        base.Add(6 * time.Hour),
		Samples:       samples,
	}
}

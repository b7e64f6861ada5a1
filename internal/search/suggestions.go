package search

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/camara12-arth/weather-app/internal/weather"
)

const (
	DefaultDebounceDelay   = 600 * time.Millisecond
	DefaultSuggestionLimit = 5
)

// SuggestionCoordinator owns the search term, the debounce timer, the
// suggestion list and the selected location. All methods must be called on
// the executor's loop.
type SuggestionCoordinator struct {
	exec     Executor
	geocoder weather.Geocoder
	delay    time.Duration
	limit    int
	onChange func()

	term        string
	selected    *weather.Suggestion
	suggestions []weather.Suggestion

	gen      generation
	timer    Timer
	inflight context.CancelFunc
}

// NewSuggestionCoordinator creates a coordinator. onChange, if set, is
// invoked after every state change, including async completions.
func NewSuggestionCoordinator(exec Executor, g weather.Geocoder, delay time.Duration, limit int, onChange func()) *SuggestionCoordinator {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	return &SuggestionCoordinator{
		exec:     exec,
		geocoder: g,
		delay:    delay,
		limit:    limit,
		onChange: onChange,
	}
}

// InputChanged records a keystroke. It drops the selection and current
// suggestions, makes any in-flight lookup stale and (re)arms the debounce.
// Blank input never reaches the network.
func (c *SuggestionCoordinator) InputChanged(raw string) {
	c.term = raw
	c.selected = nil
	c.suggestions = nil

	c.stopTimer()
	c.gen.invalidate()
	c.cancelInflight()

	if query := strings.TrimSpace(raw); query != "" {
		c.timer = c.exec.AfterFunc(c.delay, func() {
			c.timer = nil
			c.lookup(query)
		})
	}
	c.changed()
}

// Pick promotes s to the selected location. The term is left as typed; the
// display value switches to the suggestion's name.
func (c *SuggestionCoordinator) Pick(s weather.Suggestion) {
	c.selected = &s
	c.suggestions = nil

	c.stopTimer()
	c.cancelInflight()
	c.changed()
}

// Close releases the timer and any in-flight lookup.
func (c *SuggestionCoordinator) Close() {
	c.stopTimer()
	c.gen.invalidate()
	c.cancelInflight()
}

func (c *SuggestionCoordinator) lookup(query string) {
	token := c.gen.next()
	c.cancelInflight()

	g := c.geocoder
	limit := c.limit
	c.inflight = c.exec.Go(func(ctx context.Context) func() {
		res, err := g.Lookup(ctx, query, limit)
		return func() { c.complete(token, query, res, err) }
	})
}

func (c *SuggestionCoordinator) complete(token uint64, query string, res []weather.Suggestion, err error) {
	// Superseded by a newer keystroke or lookup: drop silently.
	if !c.gen.current(token) {
		return
	}
	c.cancelInflight()

	// A pick while the lookup was in flight wins over its results.
	if c.selected != nil {
		return
	}

	if err != nil {
		log.Printf("WARN: suggestion lookup for %q failed: %v", query, err)
		c.suggestions = nil
		c.changed()
		return
	}

	if len(res) > c.limit {
		res = res[:c.limit]
	}
	c.suggestions = append([]weather.Suggestion(nil), res...)
	c.changed()
}

// Term is the raw text as typed.
func (c *SuggestionCoordinator) Term() string {
	return c.term
}

// Selected returns the active selection or nil.
func (c *SuggestionCoordinator) Selected() *weather.Suggestion {
	if c.selected == nil {
		return nil
	}
	s := *c.selected
	return &s
}

// Suggestions returns a copy of the current list.
func (c *SuggestionCoordinator) Suggestions() []weather.Suggestion {
	return append([]weather.Suggestion(nil), c.suggestions...)
}

// DisplayValue is what the input field shows: the selected name if any,
// otherwise the term verbatim.
func (c *SuggestionCoordinator) DisplayValue() string {
	if c.selected != nil {
		return c.selected.Name
	}
	return c.term
}

// Pending reports whether a debounced lookup is armed.
func (c *SuggestionCoordinator) Pending() bool {
	return c.timer != nil
}

func (c *SuggestionCoordinator) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *SuggestionCoordinator) cancelInflight() {
	if c.inflight != nil {
		c.inflight()
		c.inflight = nil
	}
}

func (c *SuggestionCoordinator) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/camara12-arth/weather-app/internal/weather"
)

var (
	// ErrClosed is returned for intents sent to a closed session.
	ErrClosed = errors.New("session closed")
	// ErrNoSuggestion is returned when a pick by index does not match the
	// suggestion list at the time the pick is applied.
	ErrNoSuggestion = errors.New("no suggestion at index")
)

// IntentType names a user intent emitted by the rendering surface.
type IntentType string

const (
	IntentTextChanged      IntentType = "text_changed"
	IntentSuggestionPicked IntentType = "suggestion_picked"
	IntentSubmitted        IntentType = "submitted"
)

// Intent is a message from the rendering surface. Value is used by
// text_changed. suggestion_picked uses Index when set, resolved against the
// list current on the loop, and Suggestion otherwise.
type Intent struct {
	Type       IntentType
	Value      string
	Index      *int
	Suggestion weather.Suggestion
}

// SuggestionView is a suggestion with its list key and display label.
type SuggestionView struct {
	weather.Suggestion
	Key   string `json:"key"`
	Label string `json:"label"`
}

// ViewState is the immutable snapshot handed to the rendering surface.
type ViewState struct {
	Version      uint64                    `json:"version"`
	DisplayValue string                    `json:"displayValue"`
	Term         string                    `json:"term"`
	Suggestions  []SuggestionView          `json:"suggestions"`
	Selected     *weather.Suggestion       `json:"selected"`
	Forecast     *weather.ForecastSnapshot `json:"forecast"`
	Phase        Phase                     `json:"phase"`
	IsLoading    bool                      `json:"isLoading"`
	Error        *ViewError                `json:"error"`
}

// Config holds per-session tuning.
type Config struct {
	DebounceDelay   time.Duration
	SuggestionLimit int
	ForecastWindow  int
}

// Session binds both coordinators to one event loop and publishes a
// ViewState after every transition. Intents may be sent from any goroutine.
type Session struct {
	id          string
	loop        *Loop
	suggestions *SuggestionCoordinator
	forecast    *ForecastOrchestrator

	mu      sync.RWMutex
	state   ViewState
	changed chan struct{}
	closed  bool
}

// NewSession creates a session and starts its loop.
func NewSession(id string, g weather.Geocoder, f weather.ForecastFetcher, cfg Config) *Session {
	s := &Session{
		id:      id,
		loop:    NewLoop(context.Background(), 0),
		changed: make(chan struct{}),
	}
	s.suggestions = NewSuggestionCoordinator(s.loop, g, cfg.DebounceDelay, cfg.SuggestionLimit, s.publish)
	s.forecast = NewForecastOrchestrator(s.loop, f, cfg.ForecastWindow, s.publish)
	s.state = s.build(0)

	go s.loop.Run()
	return s
}

func (s *Session) ID() string {
	return s.id
}

// Dispatch applies an intent on the loop and returns the state right after
// its synchronous transition (e.g. Loading for a valid submission).
func (s *Session) Dispatch(ctx context.Context, in Intent) (ViewState, error) {
	var apply func() error
	switch in.Type {
	case IntentTextChanged:
		apply = func() error {
			s.suggestions.InputChanged(in.Value)
			return nil
		}
	case IntentSuggestionPicked:
		apply = func() error {
			sg := in.Suggestion
			if in.Index != nil {
				list := s.suggestions.Suggestions()
				if *in.Index < 0 || *in.Index >= len(list) {
					return fmt.Errorf("%w %d (list has %d)", ErrNoSuggestion, *in.Index, len(list))
				}
				sg = list[*in.Index]
			}
			s.suggestions.Pick(sg)
			return nil
		}
	case IntentSubmitted:
		apply = func() error {
			s.forecast.Submit(s.suggestions.Selected())
			return nil
		}
	default:
		return ViewState{}, fmt.Errorf("unknown intent %q", in.Type)
	}

	type result struct {
		state ViewState
		err   error
	}
	done := make(chan result, 1)
	if !s.loop.Post(func() {
		err := apply()
		done <- result{state: s.State(), err: err}
	}) {
		return ViewState{}, ErrClosed
	}

	select {
	case r := <-done:
		return r.state, r.err
	case <-s.loop.Done():
		return ViewState{}, ErrClosed
	case <-ctx.Done():
		return ViewState{}, ctx.Err()
	}
}

// TextChanged, PickSuggestion and Submit are shorthands for Dispatch.
func (s *Session) TextChanged(ctx context.Context, value string) (ViewState, error) {
	return s.Dispatch(ctx, Intent{Type: IntentTextChanged, Value: value})
}

func (s *Session) PickSuggestion(ctx context.Context, sg weather.Suggestion) (ViewState, error) {
	return s.Dispatch(ctx, Intent{Type: IntentSuggestionPicked, Suggestion: sg})
}

func (s *Session) PickIndex(ctx context.Context, index int) (ViewState, error) {
	return s.Dispatch(ctx, Intent{Type: IntentSuggestionPicked, Index: &index})
}

func (s *Session) Submit(ctx context.Context) (ViewState, error) {
	return s.Dispatch(ctx, Intent{Type: IntentSubmitted})
}

// State returns the latest published snapshot.
func (s *Session) State() ViewState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Wait blocks until a state newer than since is published, ctx ends or the
// session closes. It returns the latest state in every case.
func (s *Session) Wait(ctx context.Context, since uint64) (ViewState, error) {
	for {
		s.mu.RLock()
		st, ch, closed := s.state, s.changed, s.closed
		s.mu.RUnlock()

		if st.Version > since {
			return st, nil
		}
		if closed {
			return st, ErrClosed
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

// Close tears the session down: the debounce timer is stopped, in-flight
// requests are cancelled and their late completions are dropped.
func (s *Session) Close() {
	released := make(chan struct{})
	if s.loop.Post(func() {
		s.suggestions.Close()
		s.forecast.Close()
		close(released)
	}) {
		select {
		case <-released:
		case <-s.loop.Done():
		}
	}
	s.loop.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.changed)
	}
}

// publish runs on the loop after every coordinator transition.
func (s *Session) publish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.state = s.build(s.state.Version + 1)
	close(s.changed)
	s.changed = make(chan struct{})
}

// build must run on the loop (or before it starts).
func (s *Session) build(version uint64) ViewState {
	list := s.suggestions.Suggestions()
	views := make([]SuggestionView, 0, len(list))
	for i, sg := range list {
		views = append(views, SuggestionView{Suggestion: sg, Key: sg.Key(i), Label: sg.Label()})
	}

	phase := s.forecast.Phase()
	return ViewState{
		Version:      version,
		DisplayValue: s.suggestions.DisplayValue(),
		Term:         s.suggestions.Term(),
		Suggestions:  views,
		Selected:     s.suggestions.Selected(),
		Forecast:     s.forecast.Snapshot(),
		Phase:        phase,
		IsLoading:    phase == PhaseLoading,
		Error:        s.forecast.Err(),
	}
}

package search

import (
	"context"
	"sync"
	"time"
)

// Timer is a scheduled callback that can be cancelled before it fires.
type Timer interface {
	Stop() bool
}

// Executor runs deferred and asynchronous work for a coordinator.
//
// Callbacks given to AfterFunc, and the completion returned by a Go work
// function, run on the owner's event loop and never concurrently with each
// other or with intent handling. Work functions themselves run off-loop and
// must not touch coordinator state.
type Executor interface {
	AfterFunc(d time.Duration, fn func()) Timer
	Go(work func(ctx context.Context) func()) context.CancelFunc
}

// Loop is a single-goroutine event loop. Every state transition of a
// session is a closure executed by Run.
type Loop struct {
	events chan func()
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewLoop creates a loop bound to parent; call Run to start processing.
func NewLoop(parent context.Context, buffer int) *Loop {
	if buffer <= 0 {
		buffer = 64
	}
	ctx, cancel := context.WithCancel(parent)
	return &Loop{
		events: make(chan func(), buffer),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Run processes events until the loop is closed or its parent is done.
func (l *Loop) Run() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			return
		case fn := <-l.events:
			fn()
		}
	}
}

// Post enqueues fn. It reports false if the loop has shut down.
func (l *Loop) Post(fn func()) bool {
	// select picks randomly among ready cases; check first so a closed loop
	// never accepts an event into the buffer.
	if l.ctx.Err() != nil {
		return false
	}
	select {
	case <-l.ctx.Done():
		return false
	case l.events <- fn:
		return true
	}
}

// Close stops the loop and waits for the running event, if any, to finish.
// Pending events are dropped. It must not be called from the loop itself.
func (l *Loop) Close() {
	l.once.Do(l.cancel)
	<-l.done
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// loopTimer guards against a fire that raced into the queue before Stop.
// stopped is only read and written on the loop.
type loopTimer struct {
	t       *time.Timer
	stopped bool
}

func (lt *loopTimer) Stop() bool {
	if lt.stopped {
		return false
	}
	lt.stopped = true
	lt.t.Stop()
	return true
}

// AfterFunc schedules fn on the loop after d. Stopping the returned timer
// on the loop guarantees fn never runs, even if the underlying timer already
// expired and its event is queued.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	lt := &loopTimer{}
	lt.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if lt.stopped {
				return
			}
			lt.stopped = true
			fn()
		})
	})
	return lt
}

// Go runs work on its own goroutine and posts the returned completion back
// onto the loop. The context is cancelled by the returned func or when the
// loop closes.
func (l *Loop) Go(work func(ctx context.Context) func()) context.CancelFunc {
	ctx, cancel := context.WithCancel(l.ctx)
	go func() {
		if done := work(ctx); done != nil {
			l.Post(done)
		}
	}()
	return cancel
}

var _ Executor = (*Loop)(nil)

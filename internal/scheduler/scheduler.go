package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Reaper removes sessions that have been idle for too long.
type Reaper interface {
	Reap(now time.Time) int
	Len() int
}

// Scheduler periodically sweeps idle search sessions.
type Scheduler struct {
	scheduler *gocron.Scheduler
	reaper    Reaper
	interval  time.Duration
}

// New creates a new Scheduler.
func New(reaper Reaper, interval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		reaper:    reaper,
		interval:  interval,
	}
}

// Start schedules the sweep job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		log.Println("scheduler: sweep interval disabled; idle sessions are kept until evicted")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(s.sweep)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) sweep() {
	if n := s.reaper.Reap(time.Now()); n > 0 {
		log.Printf("INFO: scheduler: reaped %d idle sessions, %d remaining", n, s.reaper.Len())
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

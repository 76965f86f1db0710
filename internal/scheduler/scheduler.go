package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Sweeper is the cache surface the background job needs.
type Sweeper interface {
	Sweep() int
	Size() int
}

// NamedSweeper pairs a cache with a label for the sweep log line.
type NamedSweeper struct {
	Name  string
	Cache Sweeper
}

// Scheduler periodically sweeps expired entries out of the shared caches.
// Correctness never depends on it (expiry is enforced lazily on read); it
// bounds memory held by expired-but-unread entries between requests.
type Scheduler struct {
	scheduler *gocron.Scheduler
	caches    []NamedSweeper
	interval  time.Duration
}

// New creates a Scheduler sweeping the given caches at the given interval.
func New(caches []NamedSweeper, interval time.Duration) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		caches:    caches,
		interval:  interval,
	}
}

// Start schedules the sweep job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.caches) == 0 {
		log.Println("scheduler: no caches configured; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		for _, c := range s.caches {
			reclaimed := c.Cache.Sweep()
			if reclaimed > 0 {
				log.Printf("scheduler: swept %d expired entries from %s cache (%d remain)", reclaimed, c.Name, c.Cache.Size())
			}
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

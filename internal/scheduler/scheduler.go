// Package scheduler runs the alert history retention sweep on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	DefaultSpec      = "@daily"
	DefaultRetention = 30 * 24 * time.Hour

	sweepTimeout = 5 * time.Minute
)

// Purger deletes alert events older than a cutoff age
type Purger interface {
	PurgeAlerts(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Scheduler periodically purges old alert history.
type Scheduler struct {
	cron      *cron.Cron
	purger    Purger
	spec      string
	retention time.Duration
}

// New creates a new Scheduler. An empty spec or non-positive retention
// falls back to the defaults.
func New(purger Purger, spec string, retention time.Duration) *Scheduler {
	if spec == "" {
		spec = DefaultSpec
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		purger:    purger,
		spec:      spec,
		retention: retention,
	}
}

// RunOnce runs a single sweep and reports how many events were removed
func (s *Scheduler) RunOnce(ctx context.Context) (int64, error) {
	n, err := s.purger.PurgeAlerts(ctx, s.retention)
	if err != nil {
		return 0, fmt.Errorf("alert retention sweep failed: %w", err)
	}
	log.Printf("✓ Purged %d alert(s) older than %s", n, s.retention)
	return n, nil
}

// Start schedules the sweep and starts the underlying cron runner.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()

		if _, err := s.RunOnce(ctx); err != nil {
			log.Printf("Scheduled retention sweep failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", s.spec, err)
	}

	log.Printf("Alert retention sweep scheduled (%s, keeping %s)", s.spec, s.retention)
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

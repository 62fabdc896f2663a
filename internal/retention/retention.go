// Package retention wires up the cron job that periodically deletes
// archived search results past their sliding expiry. Reads already treat
// expired rows as gone, so the sweep is housekeeping, not correctness.
package retention

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ShowzZzie/holiday-destination-finder/internal/archive"
)

const sweepTimeout = 2 * time.Minute

// Sweeper wraps robfig/cron and manages the cleanup loop.
type Sweeper struct {
	cron    *cron.Cron
	archive *archive.Store
	spec    string // cron spec, e.g. "@every 6h"
}

// New creates a Sweeper that fires every intervalHours hours.
func New(arch *archive.Store, intervalHours int) *Sweeper {
	return &Sweeper{
		cron:    cron.New(cron.WithLogger(cron.DefaultLogger)),
		archive: arch,
		spec:    fmt.Sprintf("@every %dh", intervalHours),
	}
}

// Start registers the job and starts the scheduler. Also runs one sweep
// immediately so a restart doesn't wait a full interval to catch up.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[retention] Cron started — spec: %s", s.spec)

	go s.sweep(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Sweeper) Stop() {
	s.cron.Stop()
	log.Println("[retention] Cron stopped")
}

func (s *Sweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	deleted, err := s.archive.DeleteExpired(sweepCtx)
	if err != nil {
		log.Printf("[retention] Sweep error: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("[retention] Deleted %d expired record(s)", deleted)
	}
}

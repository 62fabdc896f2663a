package search

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/ShowzZzie/holiday-destination-finder/internal/model"
	"github.com/ShowzZzie/holiday-destination-finder/internal/provider"
	"github.com/ShowzZzie/holiday-destination-finder/internal/scoring"
)

// Controller decides which provider path serves a job and re-dispatches
// into catalog mode when discovery reports the range as unsupported. The
// transition happens at most once per job.
type Controller struct {
	executor  *Executor
	discovery provider.DiscoveryProvider // nil when no discovery provider is configured
	dests     []model.Destination
	now       func() time.Time

	horizonMonths int
}

// NewController wires a per-job controller. now is injectable for tests;
// pass nil for time.Now.
func NewController(exec *Executor, discovery provider.DiscoveryProvider, dests []model.Destination, horizonMonths int, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{
		executor:      exec,
		discovery:     discovery,
		dests:         dests,
		now:           now,
		horizonMonths: horizonMonths,
	}
}

// Outcome is the terminal product of one search: ranked results plus the
// metadata the caller needs to know which path produced them.
type Outcome struct {
	Results   []model.DestinationResult
	Mode      Mode
	Fallback  bool
	Cancelled bool
}

// Run executes the search for params. airports is the pre-resolved origin
// expansion (catalog mode always uses it; discovery queries the raw origin
// token directly). Results come back scored, sorted, and truncated to the
// requested count.
func (c *Controller) Run(ctx context.Context, params model.SearchParams, window model.DateWindow, airports []string, sink ProgressSink) (*Outcome, error) {
	wantDiscovery := c.discovery != nil && containsProvider(params.Providers, c.discovery.Name())
	mode := ChooseMode(wantDiscovery, window, c.now(), c.horizonMonths)
	fallback := false

	var (
		results   []model.DestinationResult
		cancelled bool
	)

	if mode == ModeDiscovery {
		var err error
		results, cancelled, err = c.executor.RunDiscovery(ctx, c.discovery, params.Origin, window, params.TripLength, sink)
		switch {
		case errors.Is(err, provider.ErrRangeUnsupported):
			log.Printf("[search] discovery range unsupported — falling back to catalog mode")
			mode = NextMode(mode, true)
			fallback = true
		case err != nil:
			return nil, err
		}
	}

	if mode == ModeCatalog && !cancelled {
		results, cancelled = c.executor.RunCatalog(ctx, airports, c.dests, window, params.TripLength, sink)
	}

	return &Outcome{
		Results:   scoring.Apply(results, params.TopN),
		Mode:      mode,
		Fallback:  fallback,
		Cancelled: cancelled,
	}, nil
}

func containsProvider(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

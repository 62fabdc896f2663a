package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ShowzZzie/holiday-destination-finder/internal/model"
	"github.com/ShowzZzie/holiday-destination-finder/internal/provider"
	"github.com/ShowzZzie/holiday-destination-finder/internal/weather"
)

// ProgressSink receives per-destination progress updates and answers the
// cooperative cancellation check. Implemented by the hot-tier job store;
// faked in tests.
type ProgressSink interface {
	// Progress reports processed/total destination counts, the label of the
	// destination that just finished, and the origin-airport position when
	// the origin expanded to multiple airports.
	Progress(ctx context.Context, processed, total int, label string, originIndex, originCount int)
	// Cancelled reports whether the job was externally cancelled. Checked
	// before dispatching each destination; in-flight calls finish normally.
	Cancelled(ctx context.Context) bool
}

// Executor runs the destination fan-out for one job. A fresh Executor is
// built per job so the weather cache is job-scoped.
type Executor struct {
	flights  []provider.FlightProvider
	weather  *weather.Cache
	destPool int
	provPool int
}

// NewExecutor wires the enabled flight providers and the job's weather
// cache. Pool widths below 1 are clamped to 1.
func NewExecutor(flights []provider.FlightProvider, cache *weather.Cache, destPool, provPool int) *Executor {
	if destPool < 1 {
		destPool = 1
	}
	if provPool < 1 {
		provPool = 1
	}
	return &Executor{flights: flights, weather: cache, destPool: destPool, provPool: provPool}
}

// candidate is the running best offer for one destination airport.
type candidate struct {
	dest    model.Destination
	offer   *model.Offer
	weather model.WeatherSummary
}

// RunCatalog searches every destination from each origin airport in turn.
// Origin airports are processed sequentially; destinations fan out over a
// bounded pool, providers over a second, narrower pool. Returns the
// unscored best-per-destination rows and whether the job was cancelled
// part-way.
func (e *Executor) RunCatalog(ctx context.Context, airports []string, dests []model.Destination, window model.DateWindow, tripLength int, sink ProgressSink) ([]model.DestinationResult, bool) {
	var (
		mu         sync.Mutex
		candidates = make(map[string]*candidate)
		processed  int
		cancelled  bool
	)
	total := len(airports) * len(dests)

	for ai, airport := range airports {
		if sink.Cancelled(ctx) {
			cancelled = true
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.destPool)

		for _, dest := range dests {
			if sink.Cancelled(ctx) {
				cancelled = true
				break
			}

			dest := dest
			originIndex := ai + 1
			g.Go(func() error {
				cand := e.searchDestination(gctx, airport, dest, window, tripLength)

				// Progress is delivered under the table lock so updates reach
				// the sink in counter order; an inverted write would leave the
				// job record showing a stale count.
				mu.Lock()
				if cand != nil {
					mergeCandidate(candidates, cand)
				}
				processed++
				sink.Progress(ctx, processed, total, fmt.Sprintf("%s (%s)", dest.City, dest.Airport), originIndex, len(airports))
				mu.Unlock()
				return nil
			})
		}

		g.Wait()
		if cancelled {
			break
		}
	}

	return collectResults(candidates), cancelled
}

// RunDiscovery runs one discovery pass: the provider enumerates and prices
// destinations itself; weather is still fetched per destination through the
// cache. A range-unsupported error propagates to the caller untouched so
// the fallback controller can switch modes.
func (e *Executor) RunDiscovery(ctx context.Context, disc provider.DiscoveryProvider, originToken string, window model.DateWindow, tripLength int, sink ProgressSink) ([]model.DestinationResult, bool, error) {
	discoveries, err := disc.Explore(ctx, originToken, window, tripLength)
	if err != nil {
		return nil, false, err
	}

	var (
		mu         sync.Mutex
		candidates = make(map[string]*candidate)
		processed  int
		cancelled  bool
	)
	total := len(discoveries)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.destPool)

	for _, d := range discoveries {
		if sink.Cancelled(ctx) {
			cancelled = true
			break
		}

		d := d
		g.Go(func() error {
			offer := d.Offer
			cand := e.withWeather(gctx, d.Destination, &offer)

			mu.Lock()
			if cand != nil {
				mergeCandidate(candidates, cand)
			}
			processed++
			sink.Progress(ctx, processed, total, fmt.Sprintf("%s (%s)", d.Destination.City, d.Destination.Airport), 0, 0)
			mu.Unlock()
			return nil
		})
	}

	g.Wait()
	return collectResults(candidates), cancelled, nil
}

// searchDestination queries every enabled provider in parallel, reduces the
// offers to the single best one, and attaches its weather summary. Provider
// failures are absorbed: a bad provider contributes no offer, never aborts
// the destination.
func (e *Executor) searchDestination(ctx context.Context, airport string, dest model.Destination, window model.DateWindow, tripLength int) *candidate {
	var (
		mu   sync.Mutex
		best *model.Offer
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.provPool)

	for _, fp := range e.flights {
		fp := fp
		g.Go(func() error {
			offer, err := fp.Search(gctx, airport, dest, window, tripLength)
			if err != nil {
				if !errors.Is(err, provider.ErrNoOffer) && gctx.Err() == nil {
					slog.Warn("provider search failed",
						"provider", fp.Name(), "destination", dest.Airport, "origin", airport, "err", err)
				}
				return nil
			}

			mu.Lock()
			best = model.BetterOffer(best, offer)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	if best == nil {
		return nil
	}
	return e.withWeather(ctx, dest, best)
}

// withWeather resolves the weather summary for an offer's stay. A weather
// failure drops the destination rather than failing the job.
func (e *Executor) withWeather(ctx context.Context, dest model.Destination, offer *model.Offer) *candidate {
	summary, err := e.weather.Lookup(ctx, dest.Lat, dest.Lon, offer.Departure, offer.Return)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("weather lookup failed", "destination", dest.Airport, "err", err)
		}
		return nil
	}
	return &candidate{dest: dest, offer: offer, weather: summary}
}

// mergeCandidate keeps the best offer per destination airport across
// providers and origin airports. Caller holds the table lock.
func mergeCandidate(table map[string]*candidate, cand *candidate) {
	existing, ok := table[cand.dest.Airport]
	if !ok {
		table[cand.dest.Airport] = cand
		return
	}
	if model.BetterOffer(existing.offer, cand.offer) == cand.offer {
		table[cand.dest.Airport] = cand
	}
}

// collectResults flattens the candidate table into unscored result rows.
func collectResults(candidates map[string]*candidate) []model.DestinationResult {
	results := make([]model.DestinationResult, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, model.DestinationResult{
			City:              c.dest.City,
			Country:           c.dest.Country,
			Airport:           c.dest.Airport,
			AvgTempC:          c.weather.AvgTempC,
			AvgPrecipMMPerDay: c.weather.AvgPrecipMMPerDay,
			FlightPrice:       c.offer.Price,
			Currency:          c.offer.Currency,
			TotalStops:        c.offer.Stops,
			Airlines:          c.offer.Airlines,
			BestDeparture:     c.offer.Departure,
			BestReturn:        c.offer.Return,
			OriginAirport:     c.offer.OriginAirport,
			Provider:          c.offer.Provider,
		})
	}
	return results
}

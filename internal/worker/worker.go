// Package worker implements the single long-lived job consumer: it dequeues
// one job at a time, drives origin expansion, provider-mode selection and
// the search executor, writes progress, and finalizes the job record.
// Exactly one Worker instance consumes the queue, so at most one job runs
// its top-level dispatch at a time.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"

	"github.com/ShowzZzie/holiday-destination-finder/internal/archive"
	"github.com/ShowzZzie/holiday-destination-finder/internal/model"
	"github.com/ShowzZzie/holiday-destination-finder/internal/origin"
	"github.com/ShowzZzie/holiday-destination-finder/internal/provider"
	"github.com/ShowzZzie/holiday-destination-finder/internal/queue"
	"github.com/ShowzZzie/holiday-destination-finder/internal/search"
	"github.com/ShowzZzie/holiday-destination-finder/internal/weather"
)

// Worker consumes the job queue and executes searches.
type Worker struct {
	store     *queue.Store
	archive   *archive.Store
	flights   map[string]provider.FlightProvider
	discovery provider.DiscoveryProvider // nil when not configured
	weather   provider.WeatherProvider
	dests     []model.Destination

	destPool      int
	provPool      int
	horizonMonths int
}

// New constructs a Worker. flights is keyed by provider name; discovery may
// be nil when no discovery provider is configured.
func New(
	store *queue.Store,
	arch *archive.Store,
	flights map[string]provider.FlightProvider,
	discovery provider.DiscoveryProvider,
	weatherSrc provider.WeatherProvider,
	dests []model.Destination,
	destPool, provPool, horizonMonths int,
) *Worker {
	return &Worker{
		store:         store,
		archive:       arch,
		flights:       flights,
		discovery:     discovery,
		weather:       weatherSrc,
		dests:         dests,
		destPool:      destPool,
		provPool:      provPool,
		horizonMonths: horizonMonths,
	}
}

// Run blocks consuming the queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	log.Printf("[worker] Consuming queue — destination pool=%d provider pool=%d", w.destPool, w.provPool)

	for {
		jobID, err := w.store.Dequeue(ctx)
		if err != nil {
			log.Printf("[worker] Stopping: %v", err)
			return err
		}
		w.process(ctx, jobID)
	}
}

// process runs one job end to end. Panics are converted into a failed job
// so a single bad search never kills the consumer loop.
func (w *Worker) process(ctx context.Context, jobID string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("job panicked", "jobId", jobID, "panic", r)
			w.fail(ctx, jobID, "", fmt.Sprintf("internal error: %v", r), nil, nil)
		}
	}()

	rec, err := w.store.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			log.Printf("[worker] Job %s expired before claim — skipping", jobID)
		} else {
			log.Printf("[worker] Claim %s failed: %v", jobID, err)
		}
		return
	}
	if rec.Status != model.StatusQueued {
		log.Printf("[worker] Job %s is %s, not queued — skipping", jobID, rec.Status)
		return
	}

	if err := w.store.SetRunning(ctx, jobID); err != nil {
		log.Printf("[worker] Job %s: %v", jobID, err)
		return
	}
	log.Printf("[worker] Job %s started: origin=%s window=%s..%s trip=%dd providers=%v",
		jobID, rec.Params.Origin, rec.Params.Start, rec.Params.End, rec.Params.TripLength, rec.Params.Providers)

	window, err := rec.Params.Window()
	if err != nil {
		w.fail(ctx, jobID, rec.ClientID, err.Error(), &rec.Params, nil)
		return
	}

	airports, err := origin.Resolve(rec.Params.Origin)
	if err != nil {
		w.fail(ctx, jobID, rec.ClientID, err.Error(), &rec.Params, nil)
		return
	}

	enabled := w.enabledFlights(rec.Params.Providers)
	wantDiscovery := w.discovery != nil && hasName(rec.Params.Providers, w.discovery.Name())
	if len(enabled) == 0 && !wantDiscovery {
		w.fail(ctx, jobID, rec.ClientID,
			fmt.Sprintf("none of the requested providers %v are available", rec.Params.Providers),
			&rec.Params, nil)
		return
	}

	// The weather cache lives and dies with this job.
	cache := weather.NewCache(w.weather)
	exec := search.NewExecutor(enabled, cache, w.destPool, w.provPool)
	ctrl := search.NewController(exec, w.discovery, w.dests, w.horizonMonths, nil)
	sink := &storeSink{store: w.store, jobID: jobID}

	outcome, err := ctrl.Run(ctx, rec.Params, window, airports, sink)
	if err != nil {
		w.fail(ctx, jobID, rec.ClientID, err.Error(), &rec.Params, nil)
		return
	}

	payload := &model.ResultPayload{
		Meta: model.Meta{
			Origin:     rec.Params.Origin,
			Start:      rec.Params.Start,
			End:        rec.Params.End,
			TripLength: rec.Params.TripLength,
			Providers:  rec.Params.Providers,
			TopN:       rec.Params.TopN,
			Mode:       string(outcome.Mode),
			Fallback:   outcome.Fallback,
		},
		Results: outcome.Results,
	}

	if outcome.Cancelled {
		if err := w.store.SetCancelled(ctx, jobID, payload); err != nil {
			log.Printf("[worker] Job %s: %v", jobID, err)
		}
		log.Printf("[worker] Job %s cancelled — %d partial result(s)", jobID, len(outcome.Results))
		return
	}

	if err := w.store.SetDone(ctx, jobID, payload); err != nil {
		log.Printf("[worker] Job %s: %v", jobID, err)
		return
	}
	w.mirror(ctx, jobID, rec.ClientID, rec.Params, payload, model.StatusDone)
	log.Printf("[worker] Job %s done — mode=%s fallback=%v results=%d",
		jobID, outcome.Mode, outcome.Fallback, len(outcome.Results))
}

// fail finalizes a job as failed, preserving any partial payload, and
// mirrors the failure into the archive so the client can still inspect it
// after the hot record expires.
func (w *Worker) fail(ctx context.Context, jobID, clientID, msg string, params *model.SearchParams, payload *model.ResultPayload) {
	if err := w.store.SetFailed(ctx, jobID, msg, payload); err != nil {
		log.Printf("[worker] Job %s: %v", jobID, err)
		return
	}
	log.Printf("[worker] Job %s failed: %s", jobID, msg)
	if params != nil {
		w.mirror(ctx, jobID, clientID, *params, payload, model.StatusFailed)
	}
}

// mirror writes the durable copy. Non-fatal: the hot-tier record is already
// terminal, so a broken archive only shortens how long the result survives.
func (w *Worker) mirror(ctx context.Context, jobID, clientID string, params model.SearchParams, payload *model.ResultPayload, status model.Status) {
	if err := w.archive.SaveResult(ctx, jobID, clientID, params, payload, status); err != nil {
		slog.Warn("archive mirror failed", "jobId", jobID, "err", err)
	}
}

// enabledFlights maps the requested provider names onto configured
// adapters, warning about unknown ones.
func (w *Worker) enabledFlights(requested []string) []provider.FlightProvider {
	enabled := make([]provider.FlightProvider, 0, len(requested))
	for _, name := range requested {
		fp, ok := w.flights[name]
		if !ok {
			if w.discovery == nil || name != w.discovery.Name() {
				slog.Warn("requested provider not available", "provider", name)
			}
			continue
		}
		enabled = append(enabled, fp)
	}
	return enabled
}

func hasName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// storeSink adapts the hot-tier store to the executor's progress contract.
// Progress write failures are absorbed — stale progress is preferable to a
// dead search.
type storeSink struct {
	store *queue.Store
	jobID string
}

func (s *storeSink) Progress(ctx context.Context, processed, total int, label string, originIndex, originCount int) {
	if err := s.store.SetProgress(ctx, s.jobID, processed, total, label, originIndex, originCount); err != nil {
		slog.Warn("progress write failed", "jobId", s.jobID, "err", err)
	}
}

func (s *storeSink) Cancelled(ctx context.Context) bool {
	return s.store.Cancelled(ctx, s.jobID)
}

package search_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ShowzZzie/holiday-destination-finder/internal/model"
	"github.com/ShowzZzie/holiday-destination-finder/internal/provider"
	"github.com/ShowzZzie/holiday-destination-finder/internal/search"
	"github.com/ShowzZzie/holiday-destination-finder/internal/weather"
)

// ── Fakes ──────────────────────────────────────────────────────────────────

// fakeFlight serves canned offers keyed by "<origin>-<dest airport>" and
// counts how many searches it received. Optional per-destination delays
// stagger completion so concurrent fan-out paths get exercised.
type fakeFlight struct {
	name   string
	offers map[string]model.Offer
	delays map[string]time.Duration

	mu    sync.Mutex
	calls int
}

func (f *fakeFlight) Name() string { return f.name }

func (f *fakeFlight) Search(ctx context.Context, originAirport string, dest model.Destination, window model.DateWindow, tripLength int) (*model.Offer, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if d, ok := f.delays[dest.Airport]; ok {
		time.Sleep(d)
	}
	if o, ok := f.offers[originAirport+"-"+dest.Airport]; ok {
		o.OriginAirport = originAirport
		o.Provider = f.name
		return &o, nil
	}
	return nil, provider.ErrNoOffer
}

func (f *fakeFlight) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeWeather struct {
	summary model.WeatherSummary
	err     error

	mu    sync.Mutex
	calls int
}

func (w *fakeWeather) Lookup(ctx context.Context, lat, lon float64, departure, ret string) (model.WeatherSummary, error) {
	w.mu.Lock()
	w.calls++
	w.mu.Unlock()
	if w.err != nil {
		return model.WeatherSummary{}, w.err
	}
	return w.summary, nil
}

func (w *fakeWeather) callCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

type fakeDiscovery struct {
	found []provider.Discovery
	err   error

	mu    sync.Mutex
	calls int
}

func (d *fakeDiscovery) Name() string { return "explore" }

func (d *fakeDiscovery) Explore(ctx context.Context, originToken string, window model.DateWindow, tripLength int) ([]provider.Discovery, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return d.found, nil
}

func (d *fakeDiscovery) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type progressUpdate struct {
	processed, total         int
	label                    string
	originIndex, originCount int
}

// fakeSink records progress updates and flips to cancelled once cancelAfter
// updates have been recorded (0 never cancels).
type fakeSink struct {
	mu          sync.Mutex
	updates     []progressUpdate
	cancelAfter int
}

func (s *fakeSink) Progress(ctx context.Context, processed, total int, label string, originIndex, originCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, progressUpdate{processed, total, label, originIndex, originCount})
}

func (s *fakeSink) Cancelled(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelAfter > 0 && len(s.updates) >= s.cancelAfter
}

func (s *fakeSink) recorded() []progressUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]progressUpdate, len(s.updates))
	copy(out, s.updates)
	return out
}

var (
	testDests = []model.Destination{
		{City: "Rome", Country: "Italy", Airport: "FCO", Lat: 41.8, Lon: 12.25},
		{City: "Malaga", Country: "Spain", Airport: "AGP", Lat: 36.67, Lon: -4.5},
	}
	mildWeather = model.WeatherSummary{AvgTempC: 25, AvgPrecipMMPerDay: 0.1}
)

// ── RunCatalog ─────────────────────────────────────────────────────────────

// Two providers price the same destination; the cheaper offer must win and
// a destination neither provider can serve must be absent, not zeroed.
func TestRunCatalog_KeepsBestOfferPerDestination(t *testing.T) {
	p1 := &fakeFlight{name: "p1", offers: map[string]model.Offer{
		"WAW-FCO": {Price: 80, Currency: "EUR", Stops: 0, Departure: "2026-06-10", Return: "2026-06-17"},
	}}
	p2 := &fakeFlight{name: "p2", offers: map[string]model.Offer{
		"WAW-FCO": {Price: 95, Currency: "EUR", Stops: 1, Departure: "2026-06-11", Return: "2026-06-18"},
	}}
	fw := &fakeWeather{summary: mildWeather}

	exec := search.NewExecutor([]provider.FlightProvider{p1, p2}, weather.NewCache(fw), 2, 2)
	results, cancelled := exec.RunCatalog(context.Background(), []string{"WAW"}, testDests, window("2026-06-01", "2026-06-30"), 7, &fakeSink{})

	if cancelled {
		t.Fatal("RunCatalog reported cancelled")
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1: %+v", len(results), results)
	}
	r := results[0]
	if r.Airport != "FCO" || r.FlightPrice != 80 || r.Provider != "p1" || r.TotalStops != 0 {
		t.Errorf("best offer not kept: %+v", r)
	}
	if r.AvgTempC != 25 || r.AvgPrecipMMPerDay != 0.1 {
		t.Errorf("weather summary not attached: %+v", r)
	}
	if r.OriginAirport != "WAW" {
		t.Errorf("origin airport = %q, want WAW", r.OriginAirport)
	}
}

// With a single-slot destination pool the fan-out degenerates to sequential
// execution, so progress must count 1..total with total fixed throughout and
// the origin index advancing per airport.
func TestRunCatalog_ProgressCountsEveryDestination(t *testing.T) {
	p := &fakeFlight{name: "p1", offers: map[string]model.Offer{
		"WAW-FCO": {Price: 80, Departure: "2026-06-10", Return: "2026-06-17"},
		"KRK-AGP": {Price: 60, Departure: "2026-06-12", Return: "2026-06-19"},
	}}
	sink := &fakeSink{}

	exec := search.NewExecutor([]provider.FlightProvider{p}, weather.NewCache(&fakeWeather{summary: mildWeather}), 1, 1)
	_, cancelled := exec.RunCatalog(context.Background(), []string{"WAW", "KRK"}, testDests, window("2026-06-01", "2026-06-30"), 7, sink)

	if cancelled {
		t.Fatal("RunCatalog reported cancelled")
	}
	updates := sink.recorded()
	if len(updates) != 4 {
		t.Fatalf("got %d progress updates, want 4", len(updates))
	}
	for i, u := range updates {
		if u.processed != i+1 {
			t.Errorf("update %d: processed = %d, want %d", i, u.processed, i+1)
		}
		if u.total != 4 {
			t.Errorf("update %d: total = %d, want 4", i, u.total)
		}
		if u.originCount != 2 {
			t.Errorf("update %d: originCount = %d, want 2", i, u.originCount)
		}
		wantOrigin := 1
		if i >= 2 {
			wantOrigin = 2
		}
		if u.originIndex != wantOrigin {
			t.Errorf("update %d: originIndex = %d, want %d", i, u.originIndex, wantOrigin)
		}
	}
}

// With a wide pool, destinations finish in arbitrary order, but updates must
// still reach the sink with strictly increasing counters: a slow first
// destination must not deliver its update after a faster later one.
func TestRunCatalog_ProgressOrderedUnderConcurrency(t *testing.T) {
	dests := []model.Destination{
		{City: "Rome", Country: "Italy", Airport: "FCO", Lat: 41.8, Lon: 12.25},
		{City: "Malaga", Country: "Spain", Airport: "AGP", Lat: 36.67, Lon: -4.5},
		{City: "Lisbon", Country: "Portugal", Airport: "LIS", Lat: 38.78, Lon: -9.14},
		{City: "Athens", Country: "Greece", Airport: "ATH", Lat: 37.94, Lon: 23.94},
		{City: "Nice", Country: "France", Airport: "NCE", Lat: 43.66, Lon: 7.22},
		{City: "Malta", Country: "Malta", Airport: "MLA", Lat: 35.86, Lon: 14.48},
	}
	p := &fakeFlight{
		name: "p1",
		delays: map[string]time.Duration{
			"FCO": 50 * time.Millisecond, // first dispatched, last to finish
			"AGP": 20 * time.Millisecond,
		},
	}
	sink := &fakeSink{}

	exec := search.NewExecutor([]provider.FlightProvider{p}, weather.NewCache(&fakeWeather{summary: mildWeather}), 3, 1)
	_, cancelled := exec.RunCatalog(context.Background(), []string{"WAW"}, dests, window("2026-06-01", "2026-06-30"), 7, sink)

	if cancelled {
		t.Fatal("RunCatalog reported cancelled")
	}
	updates := sink.recorded()
	if len(updates) != len(dests) {
		t.Fatalf("got %d progress updates, want %d", len(updates), len(dests))
	}
	for i, u := range updates {
		if u.processed != i+1 {
			t.Fatalf("progress delivered out of order: update %d carried processed=%d", i, u.processed)
		}
	}
	if last := updates[len(updates)-1]; last.processed != last.total {
		t.Errorf("final update = %d/%d, want processed == total", last.processed, last.total)
	}
}

// Cancellation after the first airport's destinations must stop before the
// second airport is dispatched, returning the partial rows.
func TestRunCatalog_CancelBetweenAirports(t *testing.T) {
	p := &fakeFlight{name: "p1", offers: map[string]model.Offer{
		"WAW-FCO": {Price: 80, Departure: "2026-06-10", Return: "2026-06-17"},
		"KRK-FCO": {Price: 40, Departure: "2026-06-12", Return: "2026-06-19"},
	}}
	sink := &fakeSink{cancelAfter: 2}

	exec := search.NewExecutor([]provider.FlightProvider{p}, weather.NewCache(&fakeWeather{summary: mildWeather}), 1, 1)
	results, cancelled := exec.RunCatalog(context.Background(), []string{"WAW", "KRK"}, testDests, window("2026-06-01", "2026-06-30"), 7, sink)

	if !cancelled {
		t.Fatal("RunCatalog did not report cancelled")
	}
	if got := p.callCount(); got != 2 {
		t.Errorf("provider searched %d times, want 2 (first airport only)", got)
	}
	if len(results) != 1 || results[0].FlightPrice != 80 {
		t.Errorf("partial results = %+v, want the WAW-FCO row only", results)
	}
}

// A weather failure drops the destination but never fails the run.
func TestRunCatalog_WeatherFailureDropsDestination(t *testing.T) {
	p := &fakeFlight{name: "p1", offers: map[string]model.Offer{
		"WAW-FCO": {Price: 80, Departure: "2026-06-10", Return: "2026-06-17"},
	}}
	fw := &fakeWeather{err: errors.New("forecast unavailable")}

	exec := search.NewExecutor([]provider.FlightProvider{p}, weather.NewCache(fw), 2, 2)
	results, cancelled := exec.RunCatalog(context.Background(), []string{"WAW"}, testDests, window("2026-06-01", "2026-06-30"), 7, &fakeSink{})

	if cancelled {
		t.Fatal("RunCatalog reported cancelled")
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0: %+v", len(results), results)
	}
}

// ── RunDiscovery ───────────────────────────────────────────────────────────

func TestRunDiscovery_AttachesWeather(t *testing.T) {
	disc := &fakeDiscovery{found: []provider.Discovery{
		{
			Destination: testDests[0],
			Offer:       model.Offer{Price: 120, Currency: "EUR", Departure: "2026-06-10", Return: "2026-06-17", Provider: "explore"},
		},
		{
			Destination: testDests[1],
			Offer:       model.Offer{Price: 90, Currency: "EUR", Departure: "2026-06-12", Return: "2026-06-19", Provider: "explore"},
		},
	}}
	fw := &fakeWeather{summary: mildWeather}

	exec := search.NewExecutor(nil, weather.NewCache(fw), 2, 2)
	results, cancelled, err := exec.RunDiscovery(context.Background(), disc, "Poland", window("2026-06-01", "2026-06-30"), 7, &fakeSink{})

	if err != nil {
		t.Fatalf("RunDiscovery returned error: %v", err)
	}
	if cancelled {
		t.Fatal("RunDiscovery reported cancelled")
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if r.AvgTempC != 25 {
			t.Errorf("%s: weather not attached: %+v", r.Airport, r)
		}
		if r.Provider != "explore" {
			t.Errorf("%s: provider = %q, want explore", r.Airport, r.Provider)
		}
	}
	if fw.callCount() != 2 {
		t.Errorf("weather fetched %d times, want 2", fw.callCount())
	}
}

func TestRunDiscovery_RangeErrorPropagates(t *testing.T) {
	disc := &fakeDiscovery{err: provider.ErrRangeUnsupported}

	exec := search.NewExecutor(nil, weather.NewCache(&fakeWeather{summary: mildWeather}), 2, 2)
	results, _, err := exec.RunDiscovery(context.Background(), disc, "Poland", window("2026-06-01", "2026-06-30"), 7, &fakeSink{})

	if !errors.Is(err, provider.ErrRangeUnsupported) {
		t.Fatalf("error = %v, want ErrRangeUnsupported", err)
	}
	if results != nil {
		t.Errorf("results = %+v, want nil", results)
	}
}

package search_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ShowzZzie/holiday-destination-finder/internal/model"
	"github.com/ShowzZzie/holiday-destination-finder/internal/provider"
	"github.com/ShowzZzie/holiday-destination-finder/internal/search"
	"github.com/ShowzZzie/holiday-destination-finder/internal/weather"
)

func catalogFlight() *fakeFlight {
	return &fakeFlight{name: "p1", offers: map[string]model.Offer{
		"WAW-FCO": {Price: 80, Currency: "EUR", Departure: "2026-06-10", Return: "2026-06-17"},
		"WAW-AGP": {Price: 120, Currency: "EUR", Departure: "2026-06-12", Return: "2026-06-19"},
	}}
}

func newController(flight *fakeFlight, disc *fakeDiscovery) *search.Controller {
	exec := search.NewExecutor([]provider.FlightProvider{flight}, weather.NewCache(&fakeWeather{summary: mildWeather}), 2, 2)
	var dp provider.DiscoveryProvider
	if disc != nil {
		dp = disc
	}
	return search.NewController(exec, dp, testDests, 6, func() time.Time { return testNow })
}

var baseParams = model.SearchParams{
	Origin:     "Poland",
	Start:      "2026-06-01",
	End:        "2026-06-30",
	TripLength: 7,
	Providers:  []string{"ryanair", "explore"},
	TopN:       10,
}

// ── Mode selection ─────────────────────────────────────────────────────────

func TestRun_DiscoveryMode(t *testing.T) {
	flight := catalogFlight()
	disc := &fakeDiscovery{found: []provider.Discovery{
		{Destination: testDests[0], Offer: model.Offer{Price: 110, Departure: "2026-06-10", Return: "2026-06-17", Provider: "explore"}},
	}}
	ctl := newController(flight, disc)

	out, err := ctl.Run(context.Background(), baseParams, window("2026-06-01", "2026-06-30"), []string{"WAW"}, &fakeSink{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out.Mode != search.ModeDiscovery || out.Fallback {
		t.Errorf("mode = %s fallback = %v, want discovery without fallback", out.Mode, out.Fallback)
	}
	if disc.callCount() != 1 {
		t.Errorf("discovery called %d times, want 1", disc.callCount())
	}
	if flight.callCount() != 0 {
		t.Errorf("catalog provider called %d times, want 0", flight.callCount())
	}
	if len(out.Results) != 1 || out.Results[0].Score == 0 {
		t.Errorf("results not scored: %+v", out.Results)
	}
}

// A window ending past the discovery horizon must start straight in catalog
// mode without ever calling the discovery provider.
func TestRun_WindowBeyondHorizonSkipsDiscovery(t *testing.T) {
	flight := catalogFlight()
	disc := &fakeDiscovery{}
	ctl := newController(flight, disc)

	params := baseParams
	params.Start, params.End = "2027-03-01", "2027-03-31"

	out, err := ctl.Run(context.Background(), params, window("2027-03-01", "2027-03-31"), []string{"WAW"}, &fakeSink{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if disc.callCount() != 0 {
		t.Fatalf("discovery called %d times, want 0", disc.callCount())
	}
	if out.Mode != search.ModeCatalog || out.Fallback {
		t.Errorf("mode = %s fallback = %v, want catalog without fallback", out.Mode, out.Fallback)
	}
	if len(out.Results) != 2 {
		t.Errorf("got %d results, want 2", len(out.Results))
	}
}

func TestRun_DiscoveryNotRequested(t *testing.T) {
	flight := catalogFlight()
	disc := &fakeDiscovery{}
	ctl := newController(flight, disc)

	params := baseParams
	params.Providers = []string{"ryanair"}

	out, err := ctl.Run(context.Background(), params, window("2026-06-01", "2026-06-30"), []string{"WAW"}, &fakeSink{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if disc.callCount() != 0 {
		t.Errorf("discovery called %d times, want 0", disc.callCount())
	}
	if out.Mode != search.ModeCatalog {
		t.Errorf("mode = %s, want catalog", out.Mode)
	}
}

// ── Fallback ───────────────────────────────────────────────────────────────

func TestRun_FallbackOnRangeUnsupported(t *testing.T) {
	flight := catalogFlight()
	disc := &fakeDiscovery{err: provider.ErrRangeUnsupported}
	ctl := newController(flight, disc)

	out, err := ctl.Run(context.Background(), baseParams, window("2026-06-01", "2026-06-30"), []string{"WAW"}, &fakeSink{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out.Mode != search.ModeCatalog || !out.Fallback {
		t.Errorf("mode = %s fallback = %v, want catalog with fallback", out.Mode, out.Fallback)
	}
	if disc.callCount() != 1 {
		t.Errorf("discovery called %d times, want 1", disc.callCount())
	}
	if flight.callCount() == 0 {
		t.Error("catalog provider never called after fallback")
	}
	if len(out.Results) != 2 {
		t.Errorf("got %d results after fallback, want 2", len(out.Results))
	}
}

func TestRun_DiscoveryHardErrorFailsJob(t *testing.T) {
	disc := &fakeDiscovery{err: errors.New("upstream 500")}
	ctl := newController(catalogFlight(), disc)

	_, err := ctl.Run(context.Background(), baseParams, window("2026-06-01", "2026-06-30"), []string{"WAW"}, &fakeSink{})
	if err == nil {
		t.Fatal("Run succeeded, want error for non-range discovery failure")
	}
}

// ── Ranking ────────────────────────────────────────────────────────────────

func TestRun_ResultsRankedAndTruncated(t *testing.T) {
	flight := catalogFlight()
	ctl := newController(flight, nil)

	params := baseParams
	params.Providers = []string{"ryanair"}
	params.TopN = 1

	out, err := ctl.Run(context.Background(), params, window("2026-06-01", "2026-06-30"), []string{"WAW"}, &fakeSink{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(out.Results) != 1 {
		t.Fatalf("got %d results, want 1 (top_n)", len(out.Results))
	}
	// Identical weather and stops everywhere, so the cheaper flight ranks first.
	if out.Results[0].Airport != "FCO" {
		t.Errorf("top result = %s, want FCO", out.Results[0].Airport)
	}
}

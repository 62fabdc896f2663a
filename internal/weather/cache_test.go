package weather_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ShowzZzie/holiday-destination-finder/internal/model"
	"github.com/ShowzZzie/holiday-destination-finder/internal/weather"
)

type countingSource struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *countingSource) Lookup(ctx context.Context, lat, lon float64, departure, ret string) (model.WeatherSummary, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return model.WeatherSummary{}, s.err
	}
	return model.WeatherSummary{AvgTempC: lat, AvgPrecipMMPerDay: lon}, nil
}

func (s *countingSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// ── Memoization ────────────────────────────────────────────────────────────

func TestLookup_FetchesOncePerKey(t *testing.T) {
	src := &countingSource{}
	cache := weather.NewCache(src)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		got, err := cache.Lookup(ctx, 41.8, 12.25, "2026-06-10", "2026-06-17")
		if err != nil {
			t.Fatalf("Lookup returned error: %v", err)
		}
		if got.AvgTempC != 41.8 {
			t.Fatalf("Lookup = %+v, want source value", got)
		}
	}
	if src.callCount() != 1 {
		t.Errorf("source fetched %d times, want 1", src.callCount())
	}
}

func TestLookup_DistinctKeysFetchSeparately(t *testing.T) {
	src := &countingSource{}
	cache := weather.NewCache(src)
	ctx := context.Background()

	cache.Lookup(ctx, 41.8, 12.25, "2026-06-10", "2026-06-17")
	cache.Lookup(ctx, 41.8, 12.25, "2026-06-11", "2026-06-18") // different stay
	cache.Lookup(ctx, 36.67, -4.5, "2026-06-10", "2026-06-17") // different place

	if src.callCount() != 3 {
		t.Errorf("source fetched %d times, want 3", src.callCount())
	}
}

// Concurrent lookups of the same key during the initial fetch must share a
// single in-flight call.
func TestLookup_ConcurrentSingleFlight(t *testing.T) {
	src := &countingSource{}
	cache := weather.NewCache(src)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Lookup(context.Background(), 41.8, 12.25, "2026-06-10", "2026-06-17"); err != nil {
				t.Errorf("Lookup returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	if src.callCount() != 1 {
		t.Errorf("source fetched %d times, want 1", src.callCount())
	}
}

// A failed fetch is not cached: the next lookup tries the source again.
func TestLookup_ErrorNotCached(t *testing.T) {
	src := &countingSource{err: errors.New("forecast unavailable")}
	cache := weather.NewCache(src)
	ctx := context.Background()

	if _, err := cache.Lookup(ctx, 41.8, 12.25, "2026-06-10", "2026-06-17"); err == nil {
		t.Fatal("Lookup succeeded, want error")
	}

	src.mu.Lock()
	src.err = nil
	src.mu.Unlock()

	got, err := cache.Lookup(ctx, 41.8, 12.25, "2026-06-10", "2026-06-17")
	if err != nil {
		t.Fatalf("Lookup after recovery returned error: %v", err)
	}
	if got.AvgTempC != 41.8 {
		t.Errorf("Lookup = %+v, want source value", got)
	}
	if src.callCount() != 2 {
		t.Errorf("source fetched %d times, want 2", src.callCount())
	}
}

package origin_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ShowzZzie/holiday-destination-finder/internal/origin"
)

// ── Airport tokens ─────────────────────────────────────────────────────────

func TestResolve_AirportToken(t *testing.T) {
	for _, token := range []string{"WRO", "wro", " Wro "} {
		got, err := origin.Resolve(token)
		if err != nil {
			t.Fatalf("Resolve(%q) returned error: %v", token, err)
		}
		if !reflect.DeepEqual(got, []string{"WRO"}) {
			t.Errorf("Resolve(%q) = %v, want [WRO]", token, got)
		}
	}
}

// ── Country tokens ─────────────────────────────────────────────────────────

func TestResolve_CountryToken(t *testing.T) {
	got, err := origin.Resolve("Poland")
	if err != nil {
		t.Fatalf("Resolve(Poland) returned error: %v", err)
	}
	if len(got) < 2 {
		t.Fatalf("Resolve(Poland) = %v, want multiple airports", got)
	}

	// Fixed, stable ordering: a second expansion must match exactly so
	// progress numbering stays deterministic across runs.
	again, err := origin.Resolve("poland")
	if err != nil {
		t.Fatalf("Resolve(poland) returned error: %v", err)
	}
	if !reflect.DeepEqual(got, again) {
		t.Errorf("country expansion unstable: %v vs %v", got, again)
	}

	seen := make(map[string]bool)
	for _, code := range got {
		if seen[code] {
			t.Errorf("duplicate airport %s in expansion %v", code, got)
		}
		seen[code] = true
	}
}

// ── City tokens ────────────────────────────────────────────────────────────

func TestResolve_CityToken(t *testing.T) {
	got, err := origin.Resolve("Warsaw")
	if err != nil {
		t.Fatalf("Resolve(Warsaw) returned error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"WAW", "WMI"}) {
		t.Errorf("Resolve(Warsaw) = %v, want [WAW WMI]", got)
	}
}

// ── Unknown tokens ─────────────────────────────────────────────────────────

func TestResolve_UnknownToken(t *testing.T) {
	for _, token := range []string{"", "XYZ", "Atlantis", "   "} {
		_, err := origin.Resolve(token)
		if !errors.Is(err, origin.ErrUnresolvable) {
			t.Errorf("Resolve(%q) error = %v, want ErrUnresolvable", token, err)
		}
	}
}

// ── IsAirport ──────────────────────────────────────────────────────────────

func TestIsAirport(t *testing.T) {
	cases := []struct {
		token string
		want  bool
	}{
		{"WAW", true},
		{"waw", true},
		{"Poland", false},
		{"Warsaw", false},
		{"ZZZ", false},
	}
	for _, c := range cases {
		if got := origin.IsAirport(c.token); got != c.want {
			t.Errorf("IsAirport(%q) = %v, want %v", c.token, got, c.want)
		}
	}
}

// Package provider defines the adapter contracts for flight-price and
// weather sources, plus the concrete adapters. Every flight adapter returns
// a uniform Offer; a provider that cannot serve the requested date range at
// all signals ErrRangeUnsupported so the fallback controller can switch
// modes instead of failing the job.
package provider

import (
	"context"
	"fmt"

	"github.com/ShowzZzie/holiday-destination-finder/internal/model"
)

// ErrNoOffer means the provider completed normally but found no round trip
// for the destination/window/length combination. Not a failure.
var ErrNoOffer = fmt.Errorf("no offer found")

// ErrRangeUnsupported means the requested window lies outside the range the
// provider is structurally able to serve. Drives the fallback transition.
var ErrRangeUnsupported = fmt.Errorf("date range not supported by provider")

// FlightProvider prices a fixed destination against a departure window,
// returning its single best round-trip offer.
type FlightProvider interface {
	Name() string
	Search(ctx context.Context, originAirport string, dest model.Destination, window model.DateWindow, tripLength int) (*model.Offer, error)
}

// Discovery is one destination found and priced by a discovery provider in
// a single pass.
type Discovery struct {
	Destination model.Destination
	Offer       model.Offer
}

// DiscoveryProvider enumerates destinations and prices them in one call.
// It accepts a raw origin token (airport, city, or country) directly.
type DiscoveryProvider interface {
	Name() string
	Explore(ctx context.Context, originToken string, window model.DateWindow, tripLength int) ([]Discovery, error)
}

// WeatherProvider returns the averaged forecast for a stay.
type WeatherProvider interface {
	Lookup(ctx context.Context, lat, lon float64, departure, ret string) (model.WeatherSummary, error)
}

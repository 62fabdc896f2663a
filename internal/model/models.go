// Package model defines shared data structures for the search orchestrator.
package model

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a search job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusQueued, StatusRunning, StatusDone, StatusFailed, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// IsTerminal returns true for states with an immutable payload.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed || s == StatusCancelled
}

// SearchParams are the caller-supplied parameters of one search job.
// Dates use YYYY-MM-DD, matching the provider APIs.
type SearchParams struct {
	Origin     string   `json:"origin"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
	TripLength int      `json:"trip_length"`
	Providers  []string `json:"providers"`
	TopN       int      `json:"top_n"`
}

// Window returns the parsed departure window.
func (p SearchParams) Window() (DateWindow, error) {
	start, err := time.Parse("2006-01-02", p.Start)
	if err != nil {
		return DateWindow{}, fmt.Errorf("start date %q: %w", p.Start, err)
	}
	end, err := time.Parse("2006-01-02", p.End)
	if err != nil {
		return DateWindow{}, fmt.Errorf("end date %q: %w", p.End, err)
	}
	if end.Before(start) {
		return DateWindow{}, fmt.Errorf("end date %s precedes start date %s", p.End, p.Start)
	}
	return DateWindow{Start: start, End: end}, nil
}

// DateWindow is an inclusive departure-date range.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// Destination is one candidate city with its airport and coordinates.
type Destination struct {
	City    string  `json:"city"`
	Country string  `json:"country"`
	Airport string  `json:"airport"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Offer is one priced round-trip flight candidate. Immutable once produced
// by a provider.
type Offer struct {
	Price         float64 `json:"price"`
	Currency      string  `json:"currency"`
	Stops         int     `json:"stops"`
	Airlines      string  `json:"airlines"`
	Departure     string  `json:"departure"`
	Return        string  `json:"return"`
	OriginAirport string  `json:"origin_airport"`
	Provider      string  `json:"provider"`
}

// BetterOffer reduces two candidate offers to the preferable one: lower
// price wins, ties broken by fewer stops. Either argument may be nil; the
// result is the other argument (or nil when both are).
func BetterOffer(a, b *Offer) *Offer {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if b.Price < a.Price {
		return b
	}
	if b.Price == a.Price && b.Stops < a.Stops {
		return b
	}
	return a
}

// WeatherSummary is the averaged forecast for a stay at one location.
type WeatherSummary struct {
	AvgTempC          float64 `json:"avg_temp_c"`
	AvgPrecipMMPerDay float64 `json:"avg_precip_mm_per_day"`
}

// DestinationResult is one ranked output row: at most one per destination
// airport within a job.
type DestinationResult struct {
	City              string  `json:"city"`
	Country           string  `json:"country"`
	Airport           string  `json:"airport"`
	AvgTempC          float64 `json:"avg_temp_c"`
	AvgPrecipMMPerDay float64 `json:"avg_precip_mm_per_day"`
	FlightPrice       float64 `json:"flight_price"`
	Currency          string  `json:"currency"`
	TotalStops        int     `json:"total_stops"`
	Airlines          string  `json:"airlines"`
	BestDeparture     string  `json:"best_departure"`
	BestReturn        string  `json:"best_return"`
	OriginAirport     string  `json:"origin_airport"`
	Provider          string  `json:"provider"`
	Score             float64 `json:"score"`
}

// Meta echoes the job parameters and records which provider path produced
// the results.
type Meta struct {
	Origin     string   `json:"origin"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
	TripLength int      `json:"trip_length"`
	Providers  []string `json:"providers"`
	TopN       int      `json:"top_n"`
	Mode       string   `json:"mode"`
	Fallback   bool     `json:"fallback"`
}

// ResultPayload is the terminal document of a finished job.
type ResultPayload struct {
	Meta    Meta                `json:"meta"`
	Results []DestinationResult `json:"results"`
}

// JobRecord is the hot-tier view of a job: status, progress, and (when
// terminal) the payload or error.
type JobRecord struct {
	ID            string         `json:"id"`
	ClientID      string         `json:"client_id"`
	Status        Status         `json:"status"`
	Params        SearchParams   `json:"params"`
	QueuePosition int            `json:"queue_position,omitempty"`
	Processed     int            `json:"processed"`
	Total         int            `json:"total"`
	Current       string         `json:"current,omitempty"`
	OriginIndex   int            `json:"origin_index,omitempty"`
	OriginCount   int            `json:"origin_count,omitempty"`
	Result        *ResultPayload `json:"result,omitempty"`
	Error         string         `json:"error,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

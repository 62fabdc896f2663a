package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ShowzZzie/holiday-destination-finder/internal/model"
)

const (
	serpAPIBaseURL = "https://serpapi.com/search"
	exploreTimeout = 30 * time.Second
)

// Explore is the discovery-mode provider: one call enumerates destinations
// with prices, stops, airlines, dates, and coordinates. The upstream engine
// only serves departures within a bounded forward window (current month plus
// horizonMonths), so windows beyond it fail with ErrRangeUnsupported before
// any network call is made.
type Explore struct {
	apiKey        string
	horizonMonths int
	client        *http.Client
	now           func() time.Time
}

// NewExplore constructs the adapter. now is injectable for horizon tests;
// pass nil for time.Now.
func NewExplore(apiKey string, horizonMonths int, now func() time.Time) *Explore {
	if now == nil {
		now = time.Now
	}
	return &Explore{
		apiKey:        apiKey,
		horizonMonths: horizonMonths,
		client:        &http.Client{Timeout: exploreTimeout},
		now:           now,
	}
}

// Name implements DiscoveryProvider.
func (e *Explore) Name() string { return "explore" }

// HorizonEnd returns the last departure date the engine can serve, relative
// to now: the end of the month horizonMonths after the current one.
func HorizonEnd(now time.Time, horizonMonths int) time.Time {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.AddDate(0, horizonMonths+1, -1)
}

type exploreResponse struct {
	Destinations []exploreDestination `json:"destinations"`
}

type exploreDestination struct {
	City        string  `json:"city"`
	Country     string  `json:"country"`
	AirportCode string  `json:"airport_code"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Price       float64 `json:"price"`
	Stops       int     `json:"stops"`
	Airlines    string  `json:"airlines"`
	Departure   string  `json:"departure_date"`
	Return      string  `json:"return_date"`
}

// Explore runs one discovery pass for the origin token.
func (e *Explore) Explore(ctx context.Context, originToken string, window model.DateWindow, tripLength int) ([]Discovery, error) {
	if window.End.After(HorizonEnd(e.now(), e.horizonMonths)) {
		return nil, fmt.Errorf("window ends %s: %w", window.End.Format("2006-01-02"), ErrRangeUnsupported)
	}
	if e.apiKey == "" {
		return nil, fmt.Errorf("missing SERPAPI_API_KEY")
	}

	params := url.Values{}
	params.Set("engine", "google_travel_explore")
	params.Set("api_key", e.apiKey)
	params.Set("departure_id", originToken)
	params.Set("currency", "EUR")
	params.Set("travel_duration", strconv.Itoa(durationBucket(tripLength)))
	for _, m := range monthsInWindow(window) {
		params.Add("month", strconv.Itoa(m))
	}

	var apiResp exploreResponse
	err := withRetries(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, serpAPIBaseURL+"?"+params.Encode(), nil)
		if err != nil {
			return err
		}

		resp, err := e.client.Do(req)
		if err != nil {
			return transient(fmt.Errorf("http GET: %w", err))
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return transient(fmt.Errorf("read body: %w", err))
		}
		if resp.StatusCode != http.StatusOK {
			return statusError(resp, body)
		}
		return json.Unmarshal(body, &apiResp)
	})
	if err != nil {
		return nil, err
	}

	discoveries := make([]Discovery, 0, len(apiResp.Destinations))
	for _, d := range apiResp.Destinations {
		if d.Price <= 0 || d.AirportCode == "" {
			continue
		}
		discoveries = append(discoveries, Discovery{
			Destination: model.Destination{
				City:    d.City,
				Country: d.Country,
				Airport: d.AirportCode,
				Lat:     d.Latitude,
				Lon:     d.Longitude,
			},
			Offer: model.Offer{
				Price:         d.Price,
				Currency:      "EUR",
				Stops:         d.Stops,
				Airlines:      d.Airlines,
				Departure:     d.Departure,
				Return:        d.Return,
				OriginAirport: originToken,
				Provider:      e.Name(),
			},
		})
	}
	return discoveries, nil
}

// durationBucket maps a trip length in days to the engine's duration enum:
// 1 = weekend (≤3 days), 2 = one week (≤9 days), 3 = two weeks.
func durationBucket(days int) int {
	switch {
	case days <= 3:
		return 1
	case days <= 9:
		return 2
	default:
		return 3
	}
}

// monthsInWindow lists the calendar months (1-12) the window touches.
// Steps from the first of each month: adding a month to a day-31 date
// normalizes past short months and would skip February.
func monthsInWindow(window model.DateWindow) []int {
	var months []int
	seen := make(map[int]bool)
	first := time.Date(window.Start.Year(), window.Start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(window.End.Year(), window.End.Month(), 1, 0, 0, 0, 0, time.UTC)
	for d := first; !d.After(last); d = d.AddDate(0, 1, 0) {
		m := int(d.Month())
		if !seen[m] {
			seen[m] = true
			months = append(months, m)
		}
	}
	return months
}

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ShowzZzie/holiday-destination-finder/internal/model"
)

const (
	ryanairBaseURL = "https://services-api.ryanair.com/farfnd/v4/roundTripFares"
	ryanairTimeout = 15 * time.Second
)

// Ryanair prices round trips via the public fare-finder API. All fares are
// direct flights, so every offer has zero stops.
type Ryanair struct {
	client *http.Client
}

// NewRyanair constructs the adapter with a shared HTTP client.
func NewRyanair() *Ryanair {
	return &Ryanair{client: &http.Client{Timeout: ryanairTimeout}}
}

// Name implements FlightProvider.
func (r *Ryanair) Name() string { return "ryanair" }

// ryanairResponse mirrors the fare-finder JSON response.
type ryanairResponse struct {
	Fares []ryanairFare `json:"fares"`
}

type ryanairFare struct {
	Outbound ryanairLeg `json:"outbound"`
	Inbound  ryanairLeg `json:"inbound"`
}

type ryanairLeg struct {
	DepartureDate string       `json:"departureDate"`
	Price         ryanairPrice `json:"price"`
}

type ryanairPrice struct {
	Value        float64 `json:"value"`
	CurrencyCode string  `json:"currencyCode"`
}

// Search fetches all round-trip fares in the window and keeps the cheapest
// whose outbound→inbound gap matches tripLength exactly.
func (r *Ryanair) Search(ctx context.Context, originAirport string, dest model.Destination, window model.DateWindow, tripLength int) (*model.Offer, error) {
	lastDeparture := window.End.AddDate(0, 0, -tripLength)
	if lastDeparture.Before(window.Start) {
		return nil, ErrNoOffer // window shorter than the trip itself
	}

	params := url.Values{}
	params.Set("departureAirportIataCode", originAirport)
	params.Set("arrivalAirportIataCode", dest.Airport)
	params.Set("outboundDepartureDateFrom", window.Start.Format("2006-01-02"))
	params.Set("outboundDepartureDateTo", lastDeparture.Format("2006-01-02"))
	params.Set("inboundDepartureDateFrom", window.Start.AddDate(0, 0, tripLength).Format("2006-01-02"))
	params.Set("inboundDepartureDateTo", window.End.Format("2006-01-02"))
	params.Set("currency", "EUR")
	params.Set("adultPaxCount", "1")

	var apiResp ryanairResponse
	err := withRetries(ctx, func() error {
		return r.fetch(ctx, ryanairBaseURL+"?"+params.Encode(), &apiResp)
	})
	if err != nil {
		return nil, err
	}

	var best *model.Offer
	for _, fare := range apiResp.Fares {
		dep, err := time.Parse("2006-01-02T15:04:05", fare.Outbound.DepartureDate)
		if err != nil {
			continue
		}
		ret, err := time.Parse("2006-01-02T15:04:05", fare.Inbound.DepartureDate)
		if err != nil {
			continue
		}
		if int(ret.Sub(dep).Hours()/24) != tripLength {
			continue
		}

		offer := &model.Offer{
			Price:         fare.Outbound.Price.Value + fare.Inbound.Price.Value,
			Currency:      fare.Outbound.Price.CurrencyCode,
			Stops:         0,
			Airlines:      "Ryanair",
			Departure:     dep.Format("2006-01-02"),
			Return:        ret.Format("2006-01-02"),
			OriginAirport: originAirport,
			Provider:      r.Name(),
		}
		best = model.BetterOffer(best, offer)
	}

	if best == nil {
		return nil, ErrNoOffer
	}
	return best, nil
}

func (r *Ryanair) fetch(ctx context.Context, reqURL string, out *ryanairResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
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

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("json unmarshal: %w", err)
	}
	return nil
}

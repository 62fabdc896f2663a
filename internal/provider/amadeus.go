package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ShowzZzie/holiday-destination-finder/internal/model"
)

const (
	amadeusTokenURL  = "https://test.api.amadeus.com/v1/security/oauth2/token"
	amadeusOffersURL = "https://test.api.amadeus.com/v2/shopping/flight-offers"
	amadeusTimeout   = 20 * time.Second
)

// Amadeus prices round trips via the flight-offers search API. The API takes
// exact dates, so Search walks every departure date in the window with a
// fixed return tripLength days later and keeps the cheapest offer.
type Amadeus struct {
	apiKey    string
	apiSecret string
	client    *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewAmadeus constructs the adapter. Credentials are validated lazily at the
// first token request.
func NewAmadeus(apiKey, apiSecret string) *Amadeus {
	return &Amadeus{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		client:    &http.Client{Timeout: amadeusTimeout},
	}
}

// Name implements FlightProvider.
func (a *Amadeus) Name() string { return "amadeus" }

type amadeusTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type amadeusOffersResponse struct {
	Data []amadeusOffer `json:"data"`
}

type amadeusOffer struct {
	Itineraries       []amadeusItinerary `json:"itineraries"`
	Price             amadeusPrice       `json:"price"`
	ValidatingAirline []string           `json:"validatingAirlineCodes"`
}

type amadeusItinerary struct {
	Segments []struct{} `json:"segments"`
}

type amadeusPrice struct {
	GrandTotal string `json:"grandTotal"`
	Currency   string `json:"currency"`
}

// Search walks the departure window and returns the cheapest round trip.
// Per-date failures after retries are absorbed; the date simply contributes
// no candidate.
func (a *Amadeus) Search(ctx context.Context, originAirport string, dest model.Destination, window model.DateWindow, tripLength int) (*model.Offer, error) {
	var best *model.Offer

	for dep := window.Start; !dep.After(window.End.AddDate(0, 0, -tripLength)); dep = dep.AddDate(0, 0, 1) {
		ret := dep.AddDate(0, 0, tripLength)

		offer, err := a.searchDates(ctx, originAirport, dest.Airport, dep, ret)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		best = model.BetterOffer(best, offer)
	}

	if best == nil {
		return nil, ErrNoOffer
	}
	return best, nil
}

func (a *Amadeus) searchDates(ctx context.Context, origin, destination string, dep, ret time.Time) (*model.Offer, error) {
	token, err := a.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("originLocationCode", origin)
	params.Set("destinationLocationCode", destination)
	params.Set("departureDate", dep.Format("2006-01-02"))
	params.Set("returnDate", ret.Format("2006-01-02"))
	params.Set("adults", "1")
	params.Set("currencyCode", "EUR")
	params.Set("max", "5")

	var apiResp amadeusOffersResponse
	err = withRetries(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, amadeusOffersURL+"?"+params.Encode(), nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := a.client.Do(req)
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

	var best *model.Offer
	for _, o := range apiResp.Data {
		price, err := strconv.ParseFloat(o.Price.GrandTotal, 64)
		if err != nil {
			continue
		}

		stops := 0
		for _, it := range o.Itineraries {
			if n := len(it.Segments) - 1; n > 0 {
				stops += n
			}
		}

		offer := &model.Offer{
			Price:         price,
			Currency:      o.Price.Currency,
			Stops:         stops,
			Airlines:      strings.Join(o.ValidatingAirline, ","),
			Departure:     dep.Format("2006-01-02"),
			Return:        ret.Format("2006-01-02"),
			OriginAirport: origin,
			Provider:      a.Name(),
		}
		best = model.BetterOffer(best, offer)
	}

	if best == nil {
		return nil, ErrNoOffer
	}
	return best, nil
}

// accessToken returns a cached OAuth token, refreshing it shortly before
// expiry. Serialized so concurrent destination workers share one refresh.
func (a *Amadeus) accessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && time.Now().Before(a.tokenExpiry.Add(-30*time.Second)) {
		return a.token, nil
	}
	if a.apiKey == "" || a.apiSecret == "" {
		return "", fmt.Errorf("missing AMADEUS_API_KEY or AMADEUS_API_SECRET")
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", a.apiKey)
	form.Set("client_secret", a.apiSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, amadeusTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("token read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request returned %d: %s", resp.StatusCode, string(body))
	}

	var tok amadeusTokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("token unmarshal: %w", err)
	}

	a.token = tok.AccessToken
	a.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return a.token, nil
}

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
	openMeteoBaseURL = "https://api.open-meteo.com/v1/forecast"
	openMeteoTimeout = 10 * time.Second
)

// OpenMeteo looks up the daily forecast for a stay and averages temperature
// and precipitation over its days. No credentials required.
type OpenMeteo struct {
	client *http.Client
}

// NewOpenMeteo constructs the adapter with a shared HTTP client.
func NewOpenMeteo() *OpenMeteo {
	return &OpenMeteo{client: &http.Client{Timeout: openMeteoTimeout}}
}

type openMeteoResponse struct {
	Daily struct {
		Time              []string  `json:"time"`
		Temperature2mMean []float64 `json:"temperature_2m_mean"`
		PrecipitationSum  []float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

// Lookup implements WeatherProvider.
func (o *OpenMeteo) Lookup(ctx context.Context, lat, lon float64, departure, ret string) (model.WeatherSummary, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	params.Set("daily", "temperature_2m_mean,precipitation_sum")
	params.Set("start_date", departure)
	params.Set("end_date", ret)

	var apiResp openMeteoResponse
	err := withRetries(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, openMeteoBaseURL+"?"+params.Encode(), nil)
		if err != nil {
			return err
		}

		resp, err := o.client.Do(req)
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
		return model.WeatherSummary{}, err
	}

	temps := apiResp.Daily.Temperature2mMean
	rains := apiResp.Daily.PrecipitationSum
	if len(temps) == 0 || len(rains) == 0 {
		return model.WeatherSummary{}, fmt.Errorf("no forecast data for %.4f,%.4f %s..%s", lat, lon, departure, ret)
	}

	return model.WeatherSummary{
		AvgTempC:          average(temps),
		AvgPrecipMMPerDay: average(rains),
	}, nil
}

func average(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

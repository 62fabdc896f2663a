// Package scoring maps a flight offer plus weather summary onto a 0-100
// composite score. All functions are pure; price normalization needs the
// global min/max across the job's full result set, so scores are applied in
// a second pass once every candidate is collected.
package scoring

import (
	"math"
	"sort"

	"github.com/ShowzZzie/holiday-destination-finder/internal/model"
)

// PriceScore rewards cheap flights relative to the job-wide price range.
// A degenerate range (min == max) scores 100.
func PriceScore(price, minPrice, maxPrice float64) float64 {
	if maxPrice == minPrice {
		return 100.0
	}
	norm := (price - minPrice) / (maxPrice - minPrice)
	return 100.0 - 50.0*clamp01(norm)
}

// TempScore peaks at 26°C and loses 3 points per degree of deviation.
func TempScore(avgTempC float64) float64 {
	return math.Max(0, 100.0-3.0*math.Abs(avgTempC-26.0))
}

// RainScore penalizes precipitation; drizzle below 0.2 mm/day is free and
// light rain up to 1.0 mm/day counts as 0.5.
func RainScore(avgPrecipMMPerDay float64) float64 {
	effective := avgPrecipMMPerDay
	switch {
	case avgPrecipMMPerDay < 0.2:
		effective = 0
	case avgPrecipMMPerDay < 1.0:
		effective = 0.5
	}
	return math.Max(0, 100.0-15.0*effective)
}

// WeatherScore blends temperature and rain 60/40.
func WeatherScore(w model.WeatherSummary) float64 {
	return 0.6*TempScore(w.AvgTempC) + 0.4*RainScore(w.AvgPrecipMMPerDay)
}

// StopPenalty discounts connections, floored at 0.5.
func StopPenalty(stops int) float64 {
	if stops < 0 {
		stops = 0
	}
	return math.Max(0.5, 1.0-0.1*float64(stops))
}

// Score computes the composite score for one result row.
func Score(price float64, stops int, w model.WeatherSummary, minPrice, maxPrice float64) float64 {
	return 0.4*PriceScore(price, minPrice, maxPrice)*StopPenalty(stops) + 0.6*WeatherScore(w)
}

// Apply scores every result against the set-wide price range, then sorts
// descending by score and truncates to topN. Order-independent: permuting
// the input yields identical scores.
func Apply(results []model.DestinationResult, topN int) []model.DestinationResult {
	if len(results) == 0 {
		return results
	}

	minPrice, maxPrice := results[0].FlightPrice, results[0].FlightPrice
	for _, r := range results[1:] {
		if r.FlightPrice < minPrice {
			minPrice = r.FlightPrice
		}
		if r.FlightPrice > maxPrice {
			maxPrice = r.FlightPrice
		}
	}

	for i := range results {
		w := model.WeatherSummary{
			AvgTempC:          results[i].AvgTempC,
			AvgPrecipMMPerDay: results[i].AvgPrecipMMPerDay,
		}
		results[i].Score = Score(results[i].FlightPrice, results[i].TotalStops, w, minPrice, maxPrice)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Package catalog holds the static destination list used in catalog mode.
// The list is compiled into the binary; its order is fixed so progress
// totals are deterministic.
package catalog

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/ShowzZzie/holiday-destination-finder/internal/model"
)

//go:embed cities.csv
var citiesCSV string

// Destinations parses the embedded city list. The file is validated at
// startup; a malformed row is a build-data bug, not a runtime condition.
func Destinations() ([]model.Destination, error) {
	reader := csv.NewReader(strings.NewReader(citiesCSV))
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse cities.csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("cities.csv has no destinations")
	}

	dests := make([]model.Destination, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) != 5 {
			return nil, fmt.Errorf("cities.csv row %d: expected 5 columns, got %d", i+2, len(row))
		}
		lat, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("cities.csv row %d lat: %w", i+2, err)
		}
		lon, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("cities.csv row %d lon: %w", i+2, err)
		}
		dests = append(dests, model.Destination{
			City:    row[0],
			Country: row[1],
			Airport: row[2],
			Lat:     lat,
			Lon:     lon,
		})
	}
	return dests, nil
}

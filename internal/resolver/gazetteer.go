package resolver

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/atharv3903/tripcorridor/internal/model"
)

//go:embed cities.csv
var citiesCSV string

var (
	defaultOnce   sync.Once
	defaultCities []model.City
)

// DefaultCities returns the embedded US gazetteer. The slice is shared and must
// not be modified.
func DefaultCities() []model.City {
	defaultOnce.Do(func() {
		cities, err := LoadCities(strings.NewReader(citiesCSV))
		if err != nil {
			panic(fmt.Sprintf("resolver: embedded gazetteer: %v", err))
		}
		defaultCities = cities
	})
	return defaultCities
}

// LoadCities parses a gazetteer CSV with the header
// name,region,population,lat,lng.
func LoadCities(r io.Reader) ([]model.City, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 5

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if strings.ToLower(header[0]) != "name" {
		return nil, fmt.Errorf("unexpected header %q", strings.Join(header, ","))
	}

	var cities []model.City
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		pop, err := strconv.Atoi(rec[2])
		if err != nil {
			return nil, fmt.Errorf("city %q: population: %w", rec[0], err)
		}
		lat, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return nil, fmt.Errorf("city %q: lat: %w", rec[0], err)
		}
		lng, err := strconv.ParseFloat(rec[4], 64)
		if err != nil {
			return nil, fmt.Errorf("city %q: lng: %w", rec[0], err)
		}
		cities = append(cities, model.City{
			Name:       strings.TrimSpace(rec[0]),
			Region:     strings.ToUpper(strings.TrimSpace(rec[1])),
			Population: pop,
			Lat:        lat,
			Lng:        lng,
		})
	}
	return cities, nil
}

package airports

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
)

// RawAirportData is one record in the community airports JSON dump,
// keyed by ICAO code at the top level.
type RawAirportData struct {
	ICAO      string  `json:"icao"`
	IATA      string  `json:"iata"`
	Name      string  `json:"name"`
	City      string  `json:"city"`
	State     string  `json:"state"`
	Country   string  `json:"country"`
	Elevation int     `json:"elevation"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	TZ        string  `json:"tz"`
}

// LoaderService imports the airports JSON dump into the directory.
type LoaderService struct {
	dir *SQLDirectory
}

func NewLoaderService(dir *SQLDirectory) *LoaderService {
	return &LoaderService{dir: dir}
}

// LoadFromJSON replaces the directory contents with the records in
// reader. Expected format: {"KJFK": {"icao": "KJFK", ...}, ...}.
// Records without an ICAO, name, or IANA timezone are skipped; the
// night calculator cannot use them.
func (s *LoaderService) LoadFromJSON(ctx context.Context, reader io.Reader) (int, error) {
	var rawData map[string]RawAirportData
	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(&rawData); err != nil {
		return 0, fmt.Errorf("failed to decode JSON: %w", err)
	}
	if len(rawData) == 0 {
		return 0, fmt.Errorf("no airport data found in JSON")
	}

	log.Printf("[AirportImport] Loaded %d airports from JSON", len(rawData))

	records := make([]Airport, 0, len(rawData))
	for _, raw := range rawData {
		ap := Airport{
			ICAO:      strings.ToUpper(strings.TrimSpace(raw.ICAO)),
			IATA:      strings.ToUpper(strings.TrimSpace(raw.IATA)),
			Name:      strings.TrimSpace(raw.Name),
			City:      strings.TrimSpace(raw.City),
			Country:   strings.TrimSpace(raw.Country),
			Elevation: int64(raw.Elevation),
			Latitude:  raw.Lat,
			Longitude: raw.Lon,
			Timezone:  strings.TrimSpace(raw.TZ),
		}
		if ap.ICAO == "" || ap.Name == "" || ap.Timezone == "" {
			continue
		}
		records = append(records, ap)
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("no valid airports found after parsing")
	}

	log.Printf("[AirportImport] Parsed %d valid airports", len(records))

	if err := s.dir.EnsureSchema(ctx); err != nil {
		return 0, err
	}
	if err := s.dir.ReplaceAll(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to import airports: %w", err)
	}

	log.Printf("[AirportImport] Successfully imported %d airports", len(records))
	return len(records), nil
}

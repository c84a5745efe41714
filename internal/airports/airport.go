package airports

import "context"

// Airport is one directory record with the coordinates and IANA zone
// the night-hours calculator needs.
type Airport struct {
	ICAO      string  `db:"icao"`
	IATA      string  `db:"iata"`
	Name      string  `db:"name"`
	City      string  `db:"city"`
	Country   string  `db:"country"`
	Elevation int64   `db:"elevation"`
	Latitude  float64 `db:"latitude"`
	Longitude float64 `db:"longitude"`
	Timezone  string  `db:"timezone"`
}

// Directory resolves an airport code to its record. Lookup returns
// (nil, nil) when the code is unknown; an error means the lookup itself
// failed and the caller should degrade, not treat the airport as
// missing.
type Directory interface {
	Lookup(ctx context.Context, code string) (*Airport, error)
}

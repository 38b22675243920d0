package domain

import "errors"

// ErrObservationNotFound is returned by observation stores when no row
// matches a latest or windowed query.
var ErrObservationNotFound = errors.New("observation not found")

// Observation is one atmospheric reading at one station at one time.
// Records are created by the ingestion pipeline and never mutated.
type Observation struct {
	ID             int64   `json:"id,omitempty"`
	StationName    string  `json:"station_name"`
	WMOCode        int     `json:"wmo_code"`
	AirTemperature float64 `json:"air_temperature"` // degrees Celsius
	WindSpeed      float64 `json:"wind_speed"`      // m/s
	Phenomenon     string  `json:"phenomenon"`
	Timestamp      int64   `json:"timestamp"` // feed-level document time, unix seconds
}

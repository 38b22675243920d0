package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// City is one of the three delivery regions. The set is closed; free-form
// strings are parsed once at the boundary via ParseCity.
type City string

const (
	CityTallinn City = "tallinn"
	CityTartu   City = "tartu"
	CityParnu   City = "pärnu"
)

// VehicleType is one of the three supported delivery vehicles.
type VehicleType string

const (
	VehicleCar     VehicleType = "car"
	VehicleScooter VehicleType = "scooter"
	VehicleBike    VehicleType = "bike"
)

// WMO codes of the Tallinn-Harku, Tartu-Tõravere, and Pärnu stations.
const (
	StationTallinnHarku  = 26038
	StationTartuToravere = 26242
	StationParnu         = 41803
)

var cityFees = map[City]decimal.Decimal{
	CityTallinn: decimal.RequireFromString("1.00"),
	CityTartu:   decimal.RequireFromString("0.50"),
	CityParnu:   decimal.RequireFromString("0.00"),
}

var vehicleFees = map[VehicleType]decimal.Decimal{
	VehicleCar:     decimal.RequireFromString("1.00"),
	VehicleScooter: decimal.RequireFromString("0.50"),
	VehicleBike:    decimal.RequireFromString("0.00"),
}

var cityStations = map[City]int{
	CityTallinn: StationTallinnHarku,
	CityTartu:   StationTartuToravere,
	CityParnu:   StationParnu,
}

// ParseCity resolves a user-supplied city name, case-insensitively.
func ParseCity(s string) (City, bool) {
	c := City(strings.ToLower(s))
	_, ok := cityFees[c]
	return c, ok
}

// ParseVehicleType resolves a user-supplied vehicle type, case-insensitively.
func ParseVehicleType(s string) (VehicleType, bool) {
	v := VehicleType(strings.ToLower(s))
	_, ok := vehicleFees[v]
	return v, ok
}

// BaseFee returns the city's contribution to the base delivery fee.
func (c City) BaseFee() decimal.Decimal { return cityFees[c] }

// BaseFee returns the vehicle's contribution to the base delivery fee.
func (v VehicleType) BaseFee() decimal.Decimal { return vehicleFees[v] }

// StationCode returns the WMO code of the city's designated weather station.
func (c City) StationCode() int { return cityStations[c] }

// StationCodes returns the set of WMO codes the service cares about.
// The ingestion filter drops observations from any other station.
func StationCodes() map[int]bool {
	codes := make(map[int]bool, len(cityStations))
	for _, code := range cityStations {
		codes[code] = true
	}
	return codes
}

package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Failure categories raised by the fee calculator. The HTTP adapter maps
// each to a status code and user-visible message.
var (
	ErrUnknownCity        = errors.New("unknown city")
	ErrUnknownVehicleType = errors.New("unknown vehicle type")
	ErrVehicleForbidden   = errors.New("usage of selected vehicle type is forbidden")
	ErrNoWeatherData      = errors.New("no weather data for city")
	ErrNoWeatherForTime   = errors.New("no weather data for selected time")
)

var (
	baseFee = decimal.RequireFromString("2.00")
	feeZero = decimal.RequireFromString("0.00")
	feeHalf = decimal.RequireFromString("0.50")
	feeFull = decimal.RequireFromString("1.00")
)

// WeatherSource answers latest-observation queries for a station. Both
// methods return ErrObservationNotFound when nothing qualifies.
type WeatherSource interface {
	LatestForStation(ctx context.Context, wmoCode int) (Observation, error)
	LatestInWindow(ctx context.Context, wmoCode int, start, end int64) (Observation, error)
}

// Calculator computes delivery fees from the domain catalog and the most
// recent applicable weather observation.
type Calculator struct {
	weather WeatherSource
}

// NewCalculator creates a fee calculator backed by the given weather source.
func NewCalculator(weather WeatherSource) *Calculator {
	return &Calculator{weather: weather}
}

// Fee calculates the delivery fee for a city and vehicle type. When at is
// non-nil the observation is selected from the ingestion window covering
// that instant; otherwise the latest stored observation is used.
func (c *Calculator) Fee(ctx context.Context, city, vehicleType string, at *time.Time) (decimal.Decimal, error) {
	cty, ok := ParseCity(city)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", ErrUnknownCity, city)
	}
	vehicle, ok := ParseVehicleType(vehicleType)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", ErrUnknownVehicleType, vehicleType)
	}

	obs, err := c.selectObservation(ctx, cty, at)
	if err != nil {
		return decimal.Decimal{}, err
	}

	surcharge, err := weatherSurcharge(vehicle, obs)
	if err != nil {
		return decimal.Decimal{}, err
	}

	return baseFee.Add(cty.BaseFee()).Add(vehicle.BaseFee()).Add(surcharge), nil
}

func (c *Calculator) selectObservation(ctx context.Context, city City, at *time.Time) (Observation, error) {
	code := city.StationCode()

	if at == nil {
		obs, err := c.weather.LatestForStation(ctx, code)
		if errors.Is(err, ErrObservationNotFound) {
			return Observation{}, fmt.Errorf("%w %s", ErrNoWeatherData, city)
		}
		return obs, err
	}

	start, end := ObservationWindow(*at)
	obs, err := c.weather.LatestInWindow(ctx, code, start, end)
	if errors.Is(err, ErrObservationNotFound) {
		return Observation{}, fmt.Errorf("%w for city %s", ErrNoWeatherForTime, city)
	}
	return obs, err
}

// weatherSurcharge sums the air-temperature, wind-speed, and phenomenon
// components. A forbidden combination short-circuits with ErrVehicleForbidden.
func weatherSurcharge(vehicle VehicleType, obs Observation) (decimal.Decimal, error) {
	windFee, err := windSpeedFee(vehicle, obs.WindSpeed)
	if err != nil {
		return decimal.Decimal{}, err
	}
	phenomFee, err := phenomenonFee(vehicle, obs.Phenomenon)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return airTemperatureFee(vehicle, obs.AirTemperature).Add(windFee).Add(phenomFee), nil
}

func airTemperatureFee(vehicle VehicleType, celsius float64) decimal.Decimal {
	if vehicle == VehicleCar {
		return feeZero
	}
	switch {
	case celsius < -10:
		return feeFull
	case celsius < 0:
		return feeHalf
	default:
		return feeZero
	}
}

func windSpeedFee(vehicle VehicleType, metersPerSecond float64) (decimal.Decimal, error) {
	if vehicle != VehicleBike {
		return feeZero, nil
	}
	switch {
	case metersPerSecond > 20:
		return decimal.Decimal{}, ErrVehicleForbidden
	case metersPerSecond > 10:
		return feeHalf, nil
	default:
		return feeZero, nil
	}
}

func phenomenonFee(vehicle VehicleType, phenomenon string) (decimal.Decimal, error) {
	if vehicle == VehicleCar {
		return feeZero, nil
	}

	p := strings.ToLower(phenomenon)
	switch {
	case p == "glaze", p == "hail", strings.Contains(p, "thunder"):
		return decimal.Decimal{}, ErrVehicleForbidden
	case strings.Contains(p, "snow"), strings.Contains(p, "sleet"):
		return feeFull, nil
	case strings.Contains(p, "rain"), strings.Contains(p, "shower"):
		return feeHalf, nil
	default:
		return feeZero, nil
	}
}

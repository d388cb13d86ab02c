package transport

import (
	"math"

	"tripnav/internal/geo"
)

// FuelOverride lets a caller replace the car fuel defaults for one estimate.
type FuelOverride struct {
	ConsumptionPer100Km float64 `json:"fuelConsumptionPer100Km,omitempty"`
	PricePerUnit        float64 `json:"fuelPricePerUnit,omitempty"`
}

// Estimate is the derived travel statistics.
type Estimate struct {
	DurationHours float64 `json:"durationHours"`
	CostCurrency  int64   `json:"costCurrency"`
}

// Estimator derives duration and cost from distance.
type Estimator struct {
	table *Table
}

// NewEstimator returns an estimator over the given table (nil = defaults).
func NewEstimator(t *Table) *Estimator {
	if t == nil {
		t = DefaultTable()
	}
	return &Estimator{table: t}
}

// Table exposes the profile table in use.
func (e *Estimator) Table() *Table { return e.table }

// Estimate computes duration (one decimal) and cost (whole units, car only).
func (e *Estimator) Estimate(distanceKm float64, p Profile, fuel FuelOverride) Estimate {
	if distanceKm <= 0 {
		return Estimate{}
	}
	spec := e.table.Spec(p)
	out := Estimate{}
	if spec.SpeedKmh > 0 {
		out.DurationHours = geo.Round(distanceKm/spec.SpeedKmh, 1)
	}
	if !p.Motorized() {
		return out
	}
	consumption := spec.FuelConsumptionPer100Km
	if fuel.ConsumptionPer100Km > 0 {
		consumption = fuel.ConsumptionPer100Km
	}
	if consumption <= 0 {
		consumption = DefaultFuelConsumptionPer100Km
	}
	price := spec.FuelPricePerUnit
	if fuel.PricePerUnit > 0 {
		price = fuel.PricePerUnit
	}
	if price <= 0 {
		price = DefaultFuelPricePerUnit
	}
	out.CostCurrency = int64(math.Round(distanceKm * consumption / 100 * price))
	return out
}

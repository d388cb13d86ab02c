// Package transport defines travel profiles and derives duration and cost
// estimates from route distance.
package transport

import (
	"fmt"
	"sort"
	"strings"
)

// Profile is a named travel mode.
type Profile string

const (
	Car             Profile = "car"
	Truck           Profile = "truck"
	Bus             Profile = "bus"
	Motorcycle      Profile = "motorcycle"
	Scooter         Profile = "scooter"
	Walking         Profile = "walking"
	Bicycle         Profile = "bicycle"
	BicycleRoad     Profile = "bicycle-road"
	BicycleMountain Profile = "bicycle-mountain"
	BicycleElectric Profile = "bicycle-electric"
	PublicTransport Profile = "public-transport"
)

const (
	DefaultFuelConsumptionPer100Km = 8.0
	DefaultFuelPricePerUnit        = 66.0
)

// Spec is the speed and cost model of a profile.
type Spec struct {
	SpeedKmh float64 `yaml:"speedKmh" json:"speedKmh"`
	// ProviderProfile is the routing provider's name for this mode.
	ProviderProfile string `yaml:"providerProfile" json:"providerProfile"`
	// Fuel fields are only meaningful for motorized cost estimation (car).
	FuelConsumptionPer100Km float64 `yaml:"fuelConsumptionPer100Km,omitempty" json:"fuelConsumptionPer100Km,omitempty"`
	FuelPricePerUnit        float64 `yaml:"fuelPricePerUnit,omitempty" json:"fuelPricePerUnit,omitempty"`
}

func defaultSpecs() map[Profile]Spec {
	return map[Profile]Spec{
		Car:             {SpeedKmh: 60, ProviderProfile: "driving-car", FuelConsumptionPer100Km: DefaultFuelConsumptionPer100Km, FuelPricePerUnit: DefaultFuelPricePerUnit},
		Truck:           {SpeedKmh: 40, ProviderProfile: "driving-hgv"},
		Bus:             {SpeedKmh: 35, ProviderProfile: "driving-hgv"},
		Motorcycle:      {SpeedKmh: 60, ProviderProfile: "driving-car"},
		Scooter:         {SpeedKmh: 30, ProviderProfile: "driving-car"},
		Walking:         {SpeedKmh: 5, ProviderProfile: "foot-walking"},
		Bicycle:         {SpeedKmh: 15, ProviderProfile: "cycling-regular"},
		BicycleRoad:     {SpeedKmh: 25, ProviderProfile: "cycling-road"},
		BicycleMountain: {SpeedKmh: 12, ProviderProfile: "cycling-mountain"},
		BicycleElectric: {SpeedKmh: 20, ProviderProfile: "cycling-electric"},
		PublicTransport: {SpeedKmh: 25, ProviderProfile: "driving-car"},
	}
}

var aliases = map[string]Profile{
	"driving-car":      Car,
	"auto":             Car,
	"driving-hgv":      Truck,
	"hgv":              Truck,
	"driving-bus":      Bus,
	"foot-walking":     Walking,
	"walk":             Walking,
	"foot":             Walking,
	"bike":             Bicycle,
	"cycling-regular":  Bicycle,
	"cycling-road":     BicycleRoad,
	"cycling-mountain": BicycleMountain,
	"cycling-electric": BicycleElectric,
	"train":            PublicTransport,
	"transit":          PublicTransport,
}

// Parse accepts canonical names, provider names and the legacy short names.
// An empty string means car.
func Parse(s string) (Profile, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	if k == "" {
		return Car, nil
	}
	if _, ok := defaultSpecs()[Profile(k)]; ok {
		return Profile(k), nil
	}
	if p, ok := aliases[k]; ok {
		return p, nil
	}
	return "", fmt.Errorf("unknown transport profile: %s", s)
}

// Motorized reports whether a fuel cost model applies.
func (p Profile) Motorized() bool { return p == Car }

func (p Profile) String() string { return string(p) }

// Table holds the effective spec for every profile.
type Table struct {
	specs map[Profile]Spec
}

// DefaultTable returns the built-in profile table.
func DefaultTable() *Table { return &Table{specs: defaultSpecs()} }

// WithOverrides returns a table where non-zero override fields replace defaults.
func (t *Table) WithOverrides(over map[string]Spec) (*Table, error) {
	out := &Table{specs: map[Profile]Spec{}}
	for k, v := range t.specs {
		out.specs[k] = v
	}
	for name, o := range over {
		p, err := Parse(name)
		if err != nil {
			return nil, err
		}
		s := out.specs[p]
		if o.SpeedKmh > 0 {
			s.SpeedKmh = o.SpeedKmh
		}
		if o.ProviderProfile != "" {
			s.ProviderProfile = o.ProviderProfile
		}
		if o.FuelConsumptionPer100Km > 0 {
			s.FuelConsumptionPer100Km = o.FuelConsumptionPer100Km
		}
		if o.FuelPricePerUnit > 0 {
			s.FuelPricePerUnit = o.FuelPricePerUnit
		}
		out.specs[p] = s
	}
	return out, nil
}

// Spec returns the spec for p, falling back to car for unknown profiles.
func (t *Table) Spec(p Profile) Spec {
	if s, ok := t.specs[p]; ok {
		return s
	}
	return t.specs[Car]
}

// Profiles lists the known profiles in name order.
func (t *Table) Profiles() []Profile {
	out := make([]Profile, 0, len(t.specs))
	for p := range t.specs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

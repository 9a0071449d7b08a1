package domain

import (
	"sort"
	"strings"
)

// OutcomeWidth is the number of columns in an outcome vector.
const OutcomeWidth = 6

// InternalVariable describes one column of the outcome vectors, including
// the climatological prior used for confidence scoring and fallback
// ensembles.
type InternalVariable struct {
	Name     string
	Column   int
	Unit     string
	ClimMean float64
	ClimStd  float64
	// NonNegative marks variables with a physical floor at zero; synthetic
	// climatology draws are clamped to it.
	NonNegative bool
}

// internalVariables is the outcome vector schema. Column order is load-bearing:
// index files and the embedding pipeline agree on it. Climatology values are
// mid-latitude annual figures.
var internalVariables = []InternalVariable{
	{Name: "t2m_k", Column: 0, Unit: "K", ClimMean: 288.0, ClimStd: 6.0},
	{Name: "dewpoint_spread_k", Column: 1, Unit: "K", ClimMean: 6.0, ClimStd: 3.0, NonNegative: true},
	{Name: "msl_pa", Column: 2, Unit: "Pa", ClimMean: 101325, ClimStd: 800},
	{Name: "wind10m_ms", Column: 3, Unit: "m/s", ClimMean: 4.5, ClimStd: 2.5, NonNegative: true},
	{Name: "precip_mm", Column: 4, Unit: "mm", ClimMean: 1.8, ClimStd: 4.0, NonNegative: true},
	{Name: "cape_jkg", Column: 5, Unit: "J/kg", ClimMean: 350, ClimStd: 500, NonNegative: true},
}

// VariableMapping binds an external variable name to the internal column that
// backs it and the transform between canonical and external units.
type VariableMapping struct {
	External string
	Internal InternalVariable
	// Unit is the external unit label used in responses.
	Unit string
	// Derived marks non-invertible empirical mappings (currently only
	// relative humidity). Derived transforms may reverse ordering, so
	// percentile bounds must be re-sorted after conversion.
	Derived bool
	convert func(float64) float64
}

// FromCanonical converts a value from the internal column's canonical unit to
// the external unit.
func (m VariableMapping) FromCanonical(v float64) float64 {
	if m.convert == nil {
		return v
	}
	return m.convert(v)
}

// VariableMapper resolves external variable names against the outcome schema.
// Unknown names are reported via ok=false, never as errors: a request naming
// an unmappable variable still succeeds, with that variable marked
// unavailable.
type VariableMapper struct {
	byExternal map[string]VariableMapping
	byInternal map[string]InternalVariable
}

// NewVariableMapper builds the mapper over the built-in schema table.
func NewVariableMapper() *VariableMapper {
	byInternal := make(map[string]InternalVariable, len(internalVariables))
	for _, iv := range internalVariables {
		byInternal[iv.Name] = iv
	}

	mappings := []VariableMapping{
		{
			External: "temperature_c",
			Internal: byInternal["t2m_k"],
			Unit:     "°C",
			convert:  func(v float64) float64 { return v - 273.15 },
		},
		{
			External: "pressure_hpa",
			Internal: byInternal["msl_pa"],
			Unit:     "hPa",
			convert:  func(v float64) float64 { return v / 100.0 },
		},
		{
			External: "wind_speed_kmh",
			Internal: byInternal["wind10m_ms"],
			Unit:     "km/h",
			convert:  func(v float64) float64 { return v * 3.6 },
		},
		{
			External: "precipitation_mm",
			Internal: byInternal["precip_mm"],
			Unit:     "mm",
		},
		{
			External: "cape_jkg",
			Internal: byInternal["cape_jkg"],
			Unit:     "J/kg",
		},
		{
			External: "relative_humidity_pct",
			Internal: byInternal["dewpoint_spread_k"],
			Unit:     "%",
			Derived:  true,
			convert:  humidityFromSpread,
		},
	}

	byExternal := make(map[string]VariableMapping, len(mappings))
	for _, m := range mappings {
		byExternal[m.External] = m
	}

	return &VariableMapper{byExternal: byExternal, byInternal: byInternal}
}

// ToInternal resolves an external variable name to its mapping. Lookups are
// case-insensitive on trimmed input.
func (vm *VariableMapper) ToInternal(external string) (VariableMapping, bool) {
	m, ok := vm.byExternal[strings.ToLower(strings.TrimSpace(external))]
	return m, ok
}

// FromInternal converts a canonical-unit value to the external variable's
// unit. ok is false for names outside the schema.
func (vm *VariableMapper) FromInternal(external string, canonical float64) (float64, bool) {
	m, ok := vm.ToInternal(external)
	if !ok {
		return 0, false
	}
	return m.FromCanonical(canonical), true
}

// InternalByName looks up an internal variable by its canonical name.
func (vm *VariableMapper) InternalByName(name string) (InternalVariable, bool) {
	iv, ok := vm.byInternal[name]
	return iv, ok
}

// Internals returns the outcome schema in column order.
func (vm *VariableMapper) Internals() []InternalVariable {
	out := make([]InternalVariable, len(internalVariables))
	copy(out, internalVariables)
	return out
}

// Externals lists the supported external variable names, sorted.
func (vm *VariableMapper) Externals() []string {
	names := make([]string, 0, len(vm.byExternal))
	for name := range vm.byExternal {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// humidityFromSpread estimates relative humidity from dewpoint depression
// using the surface rule of thumb RH ≈ 100 − 5×(T−Td). Clamped to [0, 100];
// monotone decreasing in the spread.
func humidityFromSpread(spreadK float64) float64 {
	rh := 100.0 - 5.0*spreadK
	if rh < 0 {
		return 0
	}
	if rh > 100 {
		return 100
	}
	return rh
}

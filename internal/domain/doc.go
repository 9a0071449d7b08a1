// Package domain models analog ensemble forecasts: historical weather states
// retrieved by vector similarity and aggregated into forecasts with
// uncertainty bounds.
//
// # Forecast Horizons
//
// Four fixed lead times are supported: 6h, 12h, 24h and 48h. Each horizon has
// its own embedding index, because the embedding that makes two atmospheric
// states "similar" depends on how far ahead the forecast looks. Requests for
// any other horizon are rejected with [ErrInvalidRequest].
//
// # State and Outcome Vectors
//
// Analog indices store two aligned arrays per record: the embedded state
// vector (opaque, produced by the upstream embedding pipeline, compared only
// by distance) and the outcome vector (the weather observed one horizon after
// the state was recorded). Outcome vectors use a fixed column layout in
// canonical SI-adjacent units:
//
//	col 0  t2m_k              2m air temperature, Kelvin
//	col 1  dewpoint_spread_k  T − Td at 2m, Kelvin
//	col 2  msl_pa             mean sea level pressure, Pascal
//	col 3  wind10m_ms         10m wind speed, m/s
//	col 4  precip_mm          accumulated precipitation over the horizon, mm
//	col 5  cape_jkg           convective available potential energy, J/kg
//
// # External Variable Names
//
// Callers request variables by product-facing names. Each maps to one outcome
// column plus a unit conversion:
//
//	temperature_c          ← t2m_k − 273.15
//	pressure_hpa           ← msl_pa / 100
//	wind_speed_kmh         ← wind10m_ms × 3.6
//	precipitation_mm       ← precip_mm (identity)
//	cape_jkg               ← cape_jkg (identity)
//	relative_humidity_pct  ← 100 − 5 × dewpoint_spread_k, clamped to [0, 100]
//
// The humidity mapping is the empirical rule of thumb relating dewpoint
// depression to relative humidity (each degree of spread costs about 5% RH
// near the surface). It is monotone decreasing, so percentile bounds must be
// re-ordered after conversion. Names outside this table are answered with
// Available=false rather than an error, so clients can probe capabilities.
//
// # Climatology
//
// Each internal variable carries a climatological mean and standard deviation
// (mid-latitude annual values). Climatology serves two purposes: it is the
// prior that normalizes ensemble spread into a confidence score, and it is
// the fallback distribution when no index backend is reachable. Synthetic
// fallback ensembles sample fixed standard-normal quantiles of the
// climatological distribution, so degraded output is deterministic.
//
// # Risk Classification
//
// Hazard risk is derived from outcome statistics using threshold tables, one
// per hazard category:
//
//	convective_instability (cape_jkg):  300 | 1000 | 2500 | 4000 J/kg
//	heavy_precipitation    (precip_mm): 2 | 10 | 25 | 50 mm
//	damaging_wind          (wind10m_ms): 8 | 14 | 21 | 29 m/s
//
// Breakpoints separate the five levels minimal, low, moderate, high and
// extreme. The classified input is mean + weight × upper half-width, so an
// uncertain ensemble is scored part-way toward its 95th percentile and
// crosses thresholds earlier than a confident one with the same mean. The
// overall level is the worst category.
package domain

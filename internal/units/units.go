// Package units parses quantity strings like "5 mL" or "1 hr" into floats
// in canonical units. Parsing happens exactly once, at property ingestion;
// everything downstream of ingestion works with canonical numbers only.
//
// Canonical units: volume mL, time s, temperature °C, mass g, pressure
// mbar, rotation speed RPM, flow rate mL/min.
package units

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// quantityRe matches a float followed by an optional unit, e.g. "5", "5.5",
// "-20 °C", "100ml", "40 mL/min".
var quantityRe = regexp.MustCompile(
	`^\s*(-?[0-9]+(?:\.[0-9]+)?)\s*([a-zA-Zµμ°%][a-zA-Zµμ°3/]*)?\s*$`)

// factors maps a lower-cased unit to the multiplier that converts it to the
// canonical unit of its dimension. Offset conversions (kelvin) are handled
// separately.
var factors = map[string]float64{
	// Volume -> mL
	"ul": 0.001, "µl": 0.001, "μl": 0.001,
	"ml": 1, "cm3": 1, "cc": 1,
	"cl": 10,
	"dl": 100,
	"l": 1000,

	// Time -> s
	"s": 1, "sec": 1, "secs": 1, "second": 1, "seconds": 1,
	"m": 60, "min": 60, "mins": 60, "minute": 60, "minutes": 60,
	"h": 3600, "hr": 3600, "hrs": 3600, "hour": 3600, "hours": 3600,
	"d": 86400, "day": 86400, "days": 86400,

	// Mass -> g
	"ug": 1e-6, "µg": 1e-6, "μg": 1e-6,
	"mg": 0.001,
	"g":  1,
	"kg": 1000,

	// Pressure -> mbar
	"mbar": 1,
	"bar":  1000,
	"pa":   0.01,
	"hpa":  1,
	"torr": 1.33322,
	"atm":  1013.25,

	// Rotation speed -> RPM
	"rpm": 1,

	// Flow rate -> mL/min
	"ml/min": 1, "ml/m": 1,
	"l/min": 1000,
	"ml/s": 60, "ml/sec": 60,

	// Temperature. Celsius is canonical; kelvin needs an offset too.
	"°c": 1, "c": 1, "celsius": 1,
	"k": 1, "kelvin": 1,
}

// kelvinOffset converts an absolute kelvin reading to °C after the factor
// has been applied.
const kelvinOffset = -273.15

// Parse converts a quantity string to a float in the canonical unit of the
// unit's dimension. Bare numbers pass through unchanged, so values that are
// already canonical (or dimensionless, like a repeat count) parse fine.
func Parse(s string) (float64, error) {
	m := quantityRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("units: cannot parse quantity %q", s)
	}
	val, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("units: cannot parse number in %q: %w", s, err)
	}
	unit := strings.ToLower(strings.TrimSpace(m[2]))
	if unit == "" {
		return val, nil
	}
	factor, ok := factors[unit]
	if !ok {
		return 0, fmt.Errorf("units: unknown unit %q in %q", m[2], s)
	}
	val *= factor
	if unit == "k" || unit == "kelvin" {
		val += kelvinOffset
	}
	return val, nil
}

// MustParse is Parse for trusted literals; it panics on error.
func MustParse(s string) float64 {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

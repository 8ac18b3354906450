package simvar

import (
	"math"
	"strings"

	"simbridge/pkg/sim"
)

var stringUnits = map[string]bool{
	"string": true,
}

var boolUnits = map[string]bool{
	"bool":    true,
	"boolean": true,
}

var intUnits = map[string]bool{
	"enum":                true,
	"mask":                true,
	"flags":               true,
	"integer":             true,
	"bco16":               true,
	"bcd16":               true,
	"bcd32":               true,
	"frequency bcd16":     true,
	"frequency bcd32":     true,
	"frequency adf bcd32": true,
	"position 16k":        true,
	"position 32k":        true,
	"position 128":        true,
}

var radianUnits = map[string]bool{
	"radian":  true,
	"radians": true,
}

var percentOver100Units = map[string]bool{
	"percent over 100": true,
	"percentover100":   true,
}

// NormalizeUnit lower-cases a unit name and collapses separators so that
// "Percent_Over_100" and "percent over 100" compare equal.
func NormalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	u = strings.ReplaceAll(u, "_", " ")
	return strings.Join(strings.Fields(u), " ")
}

// ClassifyUnit maps a unit name to the value kind it carries. Unknown units
// are real numbers.
func ClassifyUnit(unit string) Kind {
	u := NormalizeUnit(unit)
	switch {
	case stringUnits[u]:
		return KindString
	case boolUnits[u]:
		return KindBool
	case intUnits[u]:
		return KindInt
	}
	return KindReal
}

// WireType is the data type a kind is requested with from the simulator.
func WireType(k Kind) sim.DataType {
	switch k {
	case KindString:
		return sim.DataString
	case KindBool:
		return sim.DataInt32
	case KindInt:
		return sim.DataInt64
	}
	return sim.DataFloat64
}

// convertForDisplay applies the unit conversions exposed to the surface:
// radians become degrees and fractions become percent.
func convertForDisplay(unit string, f float64) float64 {
	u := NormalizeUnit(unit)
	switch {
	case radianUnits[u]:
		return f * 180.0 / math.Pi
	case percentOver100Units[u]:
		return f * 100.0
	}
	return f
}

package proximity

import (
	"fmt"
	"math"
)

// InvalidRSSI is the reading some adapters report when no real measurement is available.
const InvalidRSSI = 0

// Distance is an estimated distance in meters, or Unknown when no estimate can be made.
// The zero value is Unknown.
type Distance struct {
	meters float64
	known  bool
}

// UnknownDistance returns the Unknown sentinel.
func UnknownDistance() Distance {
	return Distance{}
}

// Meters wraps a known distance.
func Meters(m float64) Distance {
	return Distance{meters: m, known: true}
}

// Known reports whether the distance carries a numeric estimate.
func (d Distance) Known() bool {
	return d.known
}

// Meters returns the estimate and whether it is known.
func (d Distance) Meters() (float64, bool) {
	return d.meters, d.known
}

// Beyond reports whether the distance is known and strictly greater than threshold.
func (d Distance) Beyond(threshold float64) bool {
	return d.known && d.meters > threshold
}

func (d Distance) String() string {
	if !d.known {
		return "unknown"
	}

	return fmt.Sprintf("%.2fm", d.meters)
}

// EstimateDistance converts a (smoothed) RSSI value to meters using the
// log-distance path-loss model: d = 10^((reference - rssi) / (10 * exponent)).
//
// reference is the expected RSSI at one meter. For a fixed reference and exponent the
// result strictly decreases as rssi increases. The reserved InvalidRSSI reading and
// non-positive exponents yield UnknownDistance.
func EstimateDistance(rssi, reference, exponent float64) Distance {
	if rssi == InvalidRSSI || math.IsNaN(rssi) || math.IsNaN(reference) {
		return UnknownDistance()
	}

	if exponent <= 0 || math.IsNaN(exponent) {
		return UnknownDistance()
	}

	return Meters(math.Pow(10, (reference-rssi)/(10*exponent)))
}

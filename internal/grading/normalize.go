package grading

import (
	"math"
	"strconv"
	"strings"
)

// Missing is the sentinel score for a category with no usable column.
const Missing = -1.0

// DefaultMax is used for columns whose max was never registered.
const DefaultMax = 100.0

// Normalize turns a raw cell and its column max into a percentage. It
// reports false when the cell is not numeric or the max is unusable.
func Normalize(raw string, max float64, registered bool) (float64, bool) {
	value, ok := ParseScore(raw)
	if !ok {
		return 0, false
	}
	if !registered {
		max = DefaultMax
	}
	if max <= 0 {
		return 0, false
	}
	return value / max * 100, true
}

// ParseScore parses a trimmed numeric cell. NaN and infinities are not
// scores.
func ParseScore(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

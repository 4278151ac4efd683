// Package encoding renders artifacts as JSON that is guaranteed to be free
// of non-finite numeric tokens. Optional floats are scrubbed to nil when the
// model is assembled; the token pass here catches anything that slipped
// through a plain float64 field.
package encoding

import (
	"math"
	"regexp"

	"github.com/ohler55/ojg/oj"
)

var nonFinite = regexp.MustCompile(`\b(NaN|-?Infinity|[+-]?Inf)\b`)

// Marshal serializes v to JSON with every NaN/Infinity replaced by null.
func Marshal(v any) ([]byte, error) {
	b, err := oj.Marshal(v)
	if err != nil {
		// strict marshal refuses some values; the lenient writer
		// always produces output we can scrub
		b = []byte(oj.JSON(v))
	}
	return nonFinite.ReplaceAll(b, []byte("null")), nil
}

// SafeFloat returns nil for NaN/Inf, otherwise a pointer to v rounded to
// three decimals. Used when adopting upstream numeric fields.
func SafeFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	r := Round(v, 3)
	return &r
}

// SafeFloatPtr is SafeFloat for already-optional values.
func SafeFloatPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return SafeFloat(*v)
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	f := math.Pow10(places)
	return math.Round(v*f) / f
}

// Package rating renders average review scores as five stars.
package rating

import (
	"math"
	"strconv"
)

// Star is a single star glyph.
type Star string

const (
	Full  Star = "full"
	Half  Star = "half"
	Empty Star = "empty"
)

// MaxStars is the number of stars shown for every score.
const MaxStars = 5

// Stars breaks rate into five stars. A missing or zero rate shows five empty
// stars; a fractional rate shows a half star after the full ones.
func Stars(rate *float64) []Star {
	stars := make([]Star, MaxStars)
	for i := range stars {
		stars[i] = Empty
	}
	if rate == nil || *rate <= 0 || math.IsNaN(*rate) {
		return stars
	}
	whole := int(math.Floor(*rate))
	fractional := *rate != math.Floor(*rate)
	for i := 0; i < MaxStars; i++ {
		switch {
		case i < whole:
			stars[i] = Full
		case i == whole && fractional:
			stars[i] = Half
		}
	}
	return stars
}

// Display is the numeric label next to the stars; "0" when absent.
func Display(rate *float64) string {
	if rate == nil {
		return "0"
	}
	return strconv.FormatFloat(*rate, 'f', -1, 64)
}

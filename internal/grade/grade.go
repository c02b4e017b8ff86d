// Package grade gates and normalizes pre-test and post-test grade input.
package grade

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Min and Max bound the grades a card can hold.
const (
	Min = 0
	Max = 100
)

var (
	keystrokePattern = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)
	numberPattern    = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)$`)
)

// AcceptKeystroke reports whether s is an acceptable partially typed grade.
// Anything else is rejected before it reaches the card.
func AcceptKeystroke(s string) bool {
	return s == "" || keystrokePattern.MatchString(s)
}

// IsNumber reports whether s, ignoring surrounding space, is a plain
// decimal number. NaN, infinities and exponents are not.
func IsNumber(s string) bool {
	return numberPattern.MatchString(strings.TrimSpace(s))
}

// Normalize finalizes a grade when the user leaves the field. Empty input
// stays empty, non-numeric input is returned trimmed but otherwise as is,
// and numbers are clamped to [Min, Max].
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !IsNumber(s) {
		return s
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return s
	}
	v = max(Min, min(v, Max))
	return strconv.FormatFloat(v, 'f', -1, 64)
}

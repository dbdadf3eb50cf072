package entity

import (
	"strings"
	"unicode"
)

// NormalizePlate returns the canonical form of a license plate:
// upper case with every whitespace rune removed.
//
// Example:
//
//	NormalizePlate("ab 123") // "AB123"
func NormalizePlate(plate string) string {
	if plate == "" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, plate)
}

// PlatesMatch reports whether two plates refer to the same vehicle.
// Empty plates never match, not even each other.
func PlatesMatch(a, b string) bool {
	na := NormalizePlate(a)
	if na == "" {
		return false
	}
	return na == NormalizePlate(b)
}

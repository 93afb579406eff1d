package lead

import (
	"strings"
	"unicode/utf8"
)

const (
	// MaxNameLength bounds the name answer, in characters.
	MaxNameLength = 100
	// MaxDetailsLength bounds the free-form description, in characters.
	MaxDetailsLength = 1000
)

// contactMarkers are the characters a phone, email or @handle contains.
const contactMarkers = "@+."

// ValidName reports whether a trimmed name is non-empty and within MaxNameLength.
func ValidName(s string) bool {
	n := utf8.RuneCountInString(s)
	return n > 0 && n <= MaxNameLength
}

// ValidContact applies the contact-shape heuristic.
func ValidContact(s string) bool {
	return strings.ContainsAny(s, contactMarkers)
}

// ValidDetails reports whether the description fits MaxDetailsLength.
func ValidDetails(s string) bool {
	return utf8.RuneCountInString(s) <= MaxDetailsLength
}

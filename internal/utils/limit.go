// Package utils holds small parsing helpers for query parameters.
package utils

import (
	"strconv"
	"strings"
)

// AtoiDefault parses s as a base-10 int, returning def when s is empty or
// not a number. Whitespace is not trimmed.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampLimit parses a ?limit= query value against an upper bound. Missing,
// unparsable and non-positive values yield bound; larger values are cut down
// to it. A non-positive bound disables clamping and returns the parsed value
// (or 0).
func ClampLimit(raw string, bound int) int {
	n := AtoiDefault(strings.TrimSpace(raw), 0)
	if bound <= 0 {
		if n < 0 {
			return 0
		}
		return n
	}
	if n <= 0 || n > bound {
		return bound
	}
	return n
}

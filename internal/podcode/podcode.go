// Package podcode issues and parses podcast codes: the short, human-typeable
// identifiers (e.g. "K3F9QX") handed to clients when a generation job is
// accepted and used afterwards to poll for the job's status.
//
// A code is exactly Length symbols drawn from Alphabet. Codes are random, not
// secret: the space holds 36^6 (~2.2e9) values, so collisions are expected
// under load and uniqueness is enforced by the caller against the store.
package podcode

import (
	"math/rand/v2"
	"strings"
)

const (
	// Alphabet lists the symbols a code may contain.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// Length is the fixed number of symbols in a code.
	Length = 6
)

// Generator produces candidate codes. Generate is the default implementation;
// tests substitute deterministic sequences.
type Generator func() string

// Generate returns a fresh candidate code. Each symbol is drawn independently
// and uniformly from Alphabet.
func Generate() string {
	return GenerateWith(rand.IntN)
}

// GenerateWith builds a code using intn as the source of randomness. intn(n)
// must return a value in [0, n).
func GenerateWith(intn func(n int) int) string {
	var b [Length]byte
	for i := range b {
		b[i] = Alphabet[intn(len(Alphabet))]
	}
	return string(b[:])
}

// Normalize upper-cases s and drops every rune outside Alphabet, so that
// "a-b-c 1.2.3" becomes "ABC123". The result is not guaranteed to be Valid.
func Normalize(s string) string {
	s = strings.ToUpper(s)
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Valid reports whether s is a well-formed code: exactly Length symbols, all
// taken from Alphabet. Lower-case input is rejected; call Normalize first.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}

// internal/room/code.go
package room

import (
	"math/rand"
	"strings"
)

// CodeAlphabet excludes the easily confused I, O, 0 and 1.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the number of characters in a room code.
const CodeLength = 6

// GenerateCode returns a random room code.
func GenerateCode() string {
	var b strings.Builder
	b.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		b.WriteByte(CodeAlphabet[rand.Intn(len(CodeAlphabet))])
	}
	return b.String()
}

// NormalizeCode upper-cases and trims user input before lookup.
func NormalizeCode(input string) string {
	return strings.ToUpper(strings.TrimSpace(input))
}

// ValidCode reports whether code is well formed. It does not check that a room exists.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(CodeAlphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}

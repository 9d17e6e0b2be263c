package id

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const charset = "23456789abcdefghjkmnpqrstuvwxyz"
const hashLen = 8

// Prefix marks ids minted locally, as opposed to ids assigned by a remote backend.
const Prefix = "t-"

// New returns a random local task id such as "t-k3m9x2ab".
func New() (string, error) {
	b := make([]byte, hashLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating id: %w", err)
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return Prefix + string(b), nil
}

// Parse checks that s is a well-formed local id and returns its hash part.
func Parse(s string) (string, error) {
	if !strings.HasPrefix(s, Prefix) {
		return "", fmt.Errorf("invalid id %q: missing %q prefix", s, Prefix)
	}
	hash := s[len(Prefix):]
	if len(hash) != hashLen {
		return "", fmt.Errorf("invalid id %q: hash must be %d chars", s, hashLen)
	}
	for _, c := range hash {
		if !strings.ContainsRune(charset, c) {
			return "", fmt.Errorf("invalid id %q: invalid character %q", s, c)
		}
	}
	return hash, nil
}

// Valid reports whether s is a well-formed local id.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

package util

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	publicIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	publicIDLength   = 16
)

// NewPublicID returns a random lower-case identifier used for taxonomies and
// uploaded files.
func NewPublicID() (string, error) {
	return gonanoid.Generate(publicIDAlphabet, publicIDLength)
}

// IsPublicID reports whether s could have been produced by NewPublicID.
func IsPublicID(s string) bool {
	if len(s) != publicIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}

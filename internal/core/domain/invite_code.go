package domain

import (
	"crypto/rand"
	"io"
	"math/big"
	"strings"
)

const (
	inviteAlphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	inviteSegments      = 3
	inviteSegmentLength = 4

	// InviteCodeLength is the length of a formatted code, hyphens included.
	InviteCodeLength = inviteSegments*inviteSegmentLength + inviteSegments - 1
)

// NewInviteCode returns a random code formatted XXXX-XXXX-XXXX.
func NewInviteCode() (string, error) {
	return newInviteCode(rand.Reader)
}

func newInviteCode(r io.Reader) (string, error) {
	var b strings.Builder
	b.Grow(InviteCodeLength)
	alphabetSize := big.NewInt(int64(len(inviteAlphabet)))

	for i := 0; i < inviteSegments; i++ {
		if i > 0 {
			b.WriteByte('-')
		}
		for j := 0; j < inviteSegmentLength; j++ {
			n, err := rand.Int(r, alphabetSize)
			if err != nil {
				return "", err
			}
			b.WriteByte(inviteAlphabet[n.Int64()])
		}
	}
	return b.String(), nil
}

// IsInviteCode reports whether s has the invite code shape.
func IsInviteCode(s string) bool {
	if len(s) != InviteCodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (i+1)%(inviteSegmentLength+1) == 0 {
			if c != '-' {
				return false
			}
			continue
		}
		if !strings.ContainsRune(inviteAlphabet, rune(c)) {
			return false
		}
	}
	return true
}

// NormalizeInviteCode trims whitespace and upper-cases a user-typed code.
func NormalizeInviteCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Package tokens generates the public codes used for unauthenticated access.
package tokens

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	InviteCodeLength = 8
	ShareCodeLength  = 16

	inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	shareAlphabet  = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

func InviteCode() (string, error) {
	return generate(inviteAlphabet, InviteCodeLength)
}

// ShareCode returns an unguessable code (~93 bits) for share links.
func ShareCode() (string, error) {
	return generate(shareAlphabet, ShareCodeLength)
}

// NormalizeInviteCode makes invite codes case-insensitive.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func generate(alphabet string, length int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))

	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(alphabet[n.Int64()])
	}

	return builder.String(), nil
}

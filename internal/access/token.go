package access

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
)

// TokenLength is the number of characters in an issued API key.
const TokenLength = 100

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ErrMissingPepper is returned when a hasher is built without a secret.
var ErrMissingPepper = errors.New("access key pepper is required")

// TokenHasher derives the stored form of an API key. The digest is keyed with
// a server-side pepper so a leaked table cannot be checked offline without it.
type TokenHasher struct {
	pepper []byte
}

// NewTokenHasher returns a hasher keyed with pepper.
func NewTokenHasher(pepper string) (*TokenHasher, error) {
	if pepper == "" {
		return nil, ErrMissingPepper
	}
	return &TokenHasher{pepper: []byte(pepper)}, nil
}

// Hash returns the hex HMAC-SHA256 of token. Equal tokens give equal digests.
func (h *TokenHasher) Hash(token string) string {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether token hashes to stored, in constant time.
func (h *TokenHasher) Verify(token, stored string) bool {
	computed := h.Hash(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(stored)) == 1
}

// GenerateToken returns a new random alphanumeric API key.
func GenerateToken() (string, error) {
	max := big.NewInt(int64(len(tokenAlphabet)))
	buf := make([]byte, TokenLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate token: %w", err)
		}
		buf[i] = tokenAlphabet[n.Int64()]
	}
	return string(buf), nil
}

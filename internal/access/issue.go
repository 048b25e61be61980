package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/streamrand/streamrand/internal/core"
)

// KeyWriter persists newly issued keys.
type KeyWriter interface {
	InsertKey(ctx context.Context, key *core.APIKey) error
}

// IssueKey generates a fresh token, stores only its digest on key and
// returns the plaintext token. The token cannot be recovered later.
func IssueKey(ctx context.Context, w KeyWriter, hasher *TokenHasher, key *core.APIKey) (string, error) {
	if key == nil {
		return "", errors.New("api key is required")
	}
	if key.UserID <= 0 {
		return "", fmt.Errorf("user id must be positive, got %d", key.UserID)
	}
	if key.PaidAmount < 0 {
		return "", fmt.Errorf("paid amount must not be negative, got %.2f", key.PaidAmount)
	}

	token, err := GenerateToken()
	if err != nil {
		return "", err
	}

	key.TokenHash = hasher.Hash(token)
	if err := w.InsertKey(ctx, key); err != nil {
		return "", err
	}
	return token, nil
}

package access

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamrand/streamrand/internal/core"
)

// issuingStore satisfies both KeyWriter and CredentialStore.
type issuingStore struct {
	memoryKeyStore
	insertErr error
}

func (s *issuingStore) InsertKey(_ context.Context, key *core.APIKey) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	if s.keys == nil {
		s.keys = map[string]*core.APIKey{}
	}
	s.keys[key.TokenHash] = key
	return nil
}

func TestIssueKeyThenAuthorize(t *testing.T) {
	hasher, err := NewTokenHasher("issue-pepper")
	require.NoError(t, err)

	store := &issuingStore{}
	key := &core.APIKey{UserID: 5, PaidAmount: 3, ExternalSessionID: "cs_live_1"}

	token, err := IssueKey(context.Background(), store, hasher, key)
	require.NoError(t, err)
	assert.Len(t, token, TokenLength)
	assert.Equal(t, hasher.Hash(token), key.TokenHash)
	assert.NotContains(t, key.TokenHash, token)

	guard := &Guard{Store: store, Hasher: hasher, Limiter: NewMemoryLimiter(DefaultWindow)}
	req := httptest.NewRequest("GET", "/random/boolean", nil)
	req.Header.Set(DefaultKeyHeader, token)

	got, err := guard.Authorize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, core.TierAuthorized, got.Tier)
	assert.Equal(t, int64(5), *got.Author())
}

func TestIssueKeyValidation(t *testing.T) {
	hasher, err := NewTokenHasher("issue-pepper")
	require.NoError(t, err)
	store := &issuingStore{}

	_, err = IssueKey(context.Background(), store, hasher, nil)
	require.Error(t, err)

	_, err = IssueKey(context.Background(), store, hasher, &core.APIKey{UserID: 0})
	require.Error(t, err)

	_, err = IssueKey(context.Background(), store, hasher, &core.APIKey{UserID: 1, PaidAmount: -1})
	require.Error(t, err)
	assert.Empty(t, store.keys)
}

func TestIssueKeyPropagatesStoreError(t *testing.T) {
	hasher, err := NewTokenHasher("issue-pepper")
	require.NoError(t, err)

	dup := errors.New("api key already issued for session")
	_, err = IssueKey(context.Background(), &issuingStore{insertErr: dup}, hasher, &core.APIKey{UserID: 1})
	require.ErrorIs(t, err, dup)
}

package core

import "time"

// APIKey is a paid credential. Only the keyed digest of the token is persisted;
// the plaintext token is shown once when the key is issued.
type APIKey struct {
	ID                string    `json:"id"`
	UserID            int64     `json:"user_id"`
	TokenHash         string    `json:"-"`
	PaidAmount        float64   `json:"paid_amount"`
	ExternalSessionID string    `json:"external_session_id"`
	CreatedAt         time.Time `json:"created_at"`
}

// Tier identifies how a request was admitted.
type Tier string

const (
	TierAuthorized Tier = "authorized"
	TierAnonymous  Tier = "anonymous"
)

// Access is the outcome of a successful access check.
type Access struct {
	Tier Tier
	Key  *APIKey
}

// Author returns the user id credited in response envelopes, or nil for
// anonymous callers.
func (a Access) Author() *int64 {
	if a.Tier != TierAuthorized || a.Key == nil {
		return nil
	}
	id := a.Key.UserID
	return &id
}

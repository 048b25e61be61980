package access

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"

	"github.com/streamrand/streamrand/internal/core"
)

// DefaultKeyHeader carries the API key on requests.
const DefaultKeyHeader = "X-API-Key"

// CredentialStore looks up stored API keys by their digest.
type CredentialStore interface {
	// FindKeyByTokenHash returns nil, nil when no key has the digest.
	FindKeyByTokenHash(ctx context.Context, tokenHash string) (*core.APIKey, error)
}

// Guard decides whether a request may consume entropy.
type Guard struct {
	Store     CredentialStore
	Hasher    *TokenHasher
	Limiter   Limiter
	KeyHeader string
}

// Authorize admits r as an authorized key holder or as a rate-limited
// anonymous client. A presented key never touches the limiter.
func (g *Guard) Authorize(ctx context.Context, r *http.Request) (core.Access, error) {
	if values, ok := r.Header[http.CanonicalHeaderKey(g.keyHeader())]; ok && len(values) > 0 {
		return g.authorizeKey(ctx, values[0])
	}

	ip, err := ClientIP(r)
	if err != nil {
		return core.Access{}, err
	}

	if err := g.Limiter.Reserve(ctx, ip); err != nil {
		return core.Access{}, err
	}
	return core.Access{Tier: core.TierAnonymous}, nil
}

func (g *Guard) authorizeKey(ctx context.Context, token string) (core.Access, error) {
	if !printableASCII(token) {
		return core.Access{}, ErrMalformedCredential
	}

	digest := g.Hasher.Hash(token)
	key, err := g.Store.FindKeyByTokenHash(ctx, digest)
	if err != nil {
		return core.Access{}, fmt.Errorf("lookup api key: %w", err)
	}
	if key == nil || !g.Hasher.Verify(token, key.TokenHash) {
		return core.Access{}, ErrUnauthorized
	}

	return core.Access{Tier: core.TierAuthorized, Key: key}, nil
}

func (g *Guard) keyHeader() string {
	if g.KeyHeader != "" {
		return g.KeyHeader
	}
	return DefaultKeyHeader
}

// ClientIP extracts the peer address from r.RemoteAddr, which may be
// host:port or a bare IP after proxy header rewriting.
func ClientIP(r *http.Request) (string, error) {
	remote := r.RemoteAddr
	if remote == "" {
		return "", ErrClientAddress
	}

	host := remote
	if h, _, err := net.SplitHostPort(remote); err == nil {
		host = h
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrClientAddress, remote)
	}
	return addr.Unmap().String(), nil
}

func printableASCII(value string) bool {
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c == '\t' {
			continue
		}
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

package middleware

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/streamrand/streamrand/internal/access"
	"github.com/streamrand/streamrand/internal/core"
	"github.com/streamrand/streamrand/internal/metrics"
)

// Authorizer decides whether a request may proceed.
type Authorizer interface {
	Authorize(ctx context.Context, r *http.Request) (core.Access, error)
}

type accessContextKey struct{}

// WithAccess stores the access decision on the context.
func WithAccess(ctx context.Context, a core.Access) context.Context {
	return context.WithValue(ctx, accessContextKey{}, a)
}

// AccessFromContext returns the access decision for the request, if any.
func AccessFromContext(ctx context.Context) (core.Access, bool) {
	a, ok := ctx.Value(accessContextKey{}).(core.Access)
	return a, ok
}

// Access runs every request through guard. Rejections are written by respond,
// which the server wires to the central error handler.
func Access(guard Authorizer, respond func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			granted, err := guard.Authorize(r.Context(), r)
			if err != nil {
				tier, outcome := classifyRejection(err)
				metrics.RecordAccessDecision(tier, outcome)
				respond(w, r, err)
				return
			}

			metrics.RecordAccessDecision(string(granted.Tier), "admitted")
			next.ServeHTTP(w, r.WithContext(WithAccess(r.Context(), granted)))
		})
	}
}

func classifyRejection(err error) (tier string, outcome string) {
	var limited *access.RateLimitError
	switch {
	case stderrors.As(err, &limited):
		return string(core.TierAnonymous), "rate_limited"
	case stderrors.Is(err, access.ErrClientAddress):
		return string(core.TierAnonymous), "bad_address"
	case stderrors.Is(err, access.ErrUnauthorized):
		return string(core.TierAuthorized), "unauthorized"
	case stderrors.Is(err, access.ErrMalformedCredential):
		return string(core.TierAuthorized), "malformed"
	default:
		return "unknown", "error"
	}
}

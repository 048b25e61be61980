package server

import (
	"context"
	stderrors "errors"
	"net/http"

	gferrors "github.com/fulmenhq/gofulmen/errors"

	"github.com/streamrand/streamrand/internal/access"
	"github.com/streamrand/streamrand/internal/entropy"
	apperrors "github.com/streamrand/streamrand/internal/errors"
)

// HandleError central handler for all errors
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := context.Background()
	if r != nil {
		ctx = r.Context()
	}
	apperrors.RespondWithEnvelope(w, r, toEnvelope(ctx, err))
}

// toEnvelope maps domain errors onto response codes.
func toEnvelope(ctx context.Context, err error) *gferrors.ErrorEnvelope {
	var envelope *gferrors.ErrorEnvelope
	if stderrors.As(err, &envelope) && envelope != nil {
		return envelope
	}

	var limited *access.RateLimitError
	switch {
	case stderrors.As(err, &limited):
		return apperrors.NewRateLimitedError(ctx, limited.Seconds())
	case stderrors.Is(err, access.ErrUnauthorized):
		return apperrors.WrapUnauthorized(ctx, err, "Invalid API key")
	case stderrors.Is(err, access.ErrClientAddress):
		return apperrors.WrapInvalidInput(ctx, err, "Unable to determine client address")
	case stderrors.Is(err, access.ErrMalformedCredential):
		return apperrors.WrapInternal(ctx, err, "Unable to read API key header")
	case stderrors.Is(err, entropy.ErrEmptyCatalog):
		return apperrors.WrapServiceUnavailable(ctx, err, "No entropy sources available")
	case stderrors.Is(err, context.Canceled):
		return apperrors.WrapCanceled(ctx, err, "Request canceled by client")
	case stderrors.Is(err, entropy.ErrRequest),
		stderrors.Is(err, entropy.ErrInvalidHeader),
		stderrors.Is(err, entropy.ErrInvalidResponse),
		stderrors.Is(err, entropy.ErrShortBuffer):
		return apperrors.WrapExternalService(ctx, err, "Entropy source unavailable")
	case stderrors.Is(err, context.DeadlineExceeded):
		return apperrors.WrapTimeout(ctx, err, "Entropy source timed out")
	default:
		return apperrors.EnsureEnvelope(err)
	}
}

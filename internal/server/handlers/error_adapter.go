package handlers

import (
	"net/http"
	"sync/atomic"

	apperrors "github.com/streamrand/streamrand/internal/errors"
)

// ErrorResponder writes err to w as an API error body.
type ErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

var errorResponder atomic.Pointer[ErrorResponder]

// SetHTTPErrorResponder routes handler errors through responder, which
// normally maps domain errors onto envelopes. nil restores the default.
func SetHTTPErrorResponder(responder ErrorResponder) {
	if responder == nil {
		errorResponder.Store(nil)
		return
	}
	errorResponder.Store(&responder)
}

// ResetHTTPErrorResponder restores apperrors.RespondWithError.
func ResetHTTPErrorResponder() {
	errorResponder.Store(nil)
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	if responder := errorResponder.Load(); responder != nil {
		(*responder)(w, r, err)
		return
	}
	apperrors.RespondWithError(w, r, err)
}

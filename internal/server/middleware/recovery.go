package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/streamrand/streamrand/internal/metrics"
	"github.com/streamrand/streamrand/internal/observability"
)

// Recovery turns a handler panic into a 500 envelope. The envelope goes to
// respond when one is supplied; otherwise a bare JSON body is written.
func Recovery(respond func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}

				stack := string(debug.Stack())
				metrics.RecordPanic(EndpointPattern(r))
				if observability.ServerLogger != nil {
					observability.ServerLogger.Error("Handler panic",
						zap.String("path", r.URL.Path),
						zap.String("request_id", GetRequestID(r.Context())),
						zap.Any("panic", recovered),
						zap.String("stack_trace", stack))
				}

				envelope := errors.NewErrorEnvelope("INTERNAL_ERROR", "internal server error").
					WithCorrelationID(GetRequestID(r.Context()))
				envelope, _ = envelope.WithContext(map[string]interface{}{
					"panic": fmt.Sprint(recovered),
				})
				envelope, _ = envelope.WithSeverity(errors.SeverityCritical)

				if respond != nil {
					respond(w, r, envelope)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]string{
						"code":       envelope.Code,
						"message":    envelope.Message,
						"request_id": envelope.CorrelationID,
					},
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}

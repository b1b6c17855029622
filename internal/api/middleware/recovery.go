package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	apierrors "github.com/narvanalabs/zapper/internal/api/errors"
	"github.com/narvanalabs/zapper/pkg/logger"
)

// Recovery turns a handler panic into a 500 and logs it with the request
// and scan run it belonged to. http.ErrAbortHandler is re-raised so
// net/http can drop the connection quietly.
func Recovery(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				ctx := r.Context()
				requestID := middleware.GetReqID(ctx)
				entry := apierrors.NewErrorLogEntry(requestID, apierrors.CodeInternalError, "handler panic")

				attrs := []any{
					"panic", rec,
					"correlation_id", entry.CorrelationID,
					"route", r.Method + " " + r.URL.Path,
					"stack", string(debug.Stack()),
				}
				if runID := logger.RunIDFromContext(ctx); runID != "" {
					attrs = append(attrs, "run_id", runID)
				}
				if subject := GetSubject(ctx); subject != "" {
					attrs = append(attrs, "subject", subject)
				}
				log.Error("handler panic", attrs...)

				// A streaming scan may already have sent its headers; the
				// error body then lands after the last event.
				apierrors.WriteError(w, apierrors.NewInternalError("An unexpected error occurred").WithRequestID(requestID))
			}()

			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/mcoot/teamprogress/internal/api/apierr"
	"github.com/mcoot/teamprogress/internal/middleware"
)

// Recovery turns a handler panic into a 500 JSON error. The panic value
// and stack are logged against the request id; the client only sees the
// generic internal error body.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				logger.Error("handler panic",
					slog.String("request_id", middleware.RequestID(r.Context())),
					slog.String("route", r.Method+" "+r.URL.Path),
					slog.Any("panic", v),
					slog.String("stack", string(debug.Stack())),
				)
				apierr.WriteError(w, apierr.NewInternalError())
			}()
			next.ServeHTTP(w, r)
		})
	}
}

package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// InternalErrorMessage is the only detail a client sees about a server-side
// failure.
const InternalErrorMessage = "An internal error occurred. Please try again later."

// Recovery returns a middleware that recovers from panics, logs them with a
// stack trace, and responds with a generic 500.
func Recovery() Middleware {
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
				zctx.From(r.Context()).Error("Panic recovered",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"),
				)
				w.Header().Set("Connection", "close")
				writeError(w, http.StatusInternalServerError, InternalErrorMessage)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

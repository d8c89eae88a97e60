package httpmiddleware

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-faster/jx"
)

// MaxJSONBody is the largest JSON request body ValidateJSON reads.
const MaxJSONBody = 1 << 20

// ValidateJSON rejects requests whose JSON body is not well formed with
// 400 {"error":"Invalid JSON format"} before they reach a handler. Requests
// without a JSON content type or without a body pass through untouched.
func ValidateJSON() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody || !isJSON(r.Header.Get("Content-Type")) {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxJSONBody))
			_ = r.Body.Close()
			if err != nil {
				writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}
			if len(bytes.TrimSpace(body)) > 0 && !jx.Valid(body) {
				writeError(w, http.StatusBadRequest, "Invalid JSON format")
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

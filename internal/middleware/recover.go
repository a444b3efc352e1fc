package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/pointhub/pointhub-api/internal/pkg/logger"
	"github.com/pointhub/pointhub-api/internal/pkg/response"
)

// Recover turns a handler panic into a 500 and logs it under the request's ID.
// http.ErrAbortHandler is re-raised so net/http can drop the connection quietly.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			ctx := r.Context()
			logger.FromContext(ctx).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("route", r.Method+" "+r.URL.Path).
				Msg("Handler panicked")

			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred, reference "+logger.RequestID(ctx))
		}()

		next.ServeHTTP(w, r)
	})
}

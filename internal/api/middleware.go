package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/uct-network/uct-ledger/internal/observability/tracing"
	"github.com/uct-network/uct-ledger/internal/types"
)

const cronSecretHeader = "X-Cron-Secret"

// traceMiddleware reuses the request id as trace id of the request logger.
func traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := tracing.InjectTraceIDWithValue(r.Context(), middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// cronSecretMiddleware guards the internal job endpoints. An unset secret
// rejects every call.
func (s *Server) cronSecretMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(cronSecretHeader)
		if s.cronSecret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(s.cronSecret)) != 1 {
			writeError(r.Context(), w, types.NewErrorWithMsg(
				http.StatusUnauthorized, types.Unauthorized, "invalid cron secret",
			))
			return
		}
		next.ServeHTTP(w, r)
	})
}

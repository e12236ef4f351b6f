package middleware

import (
	"net/http"
	"strings"

	"github.com/storemate/terminal-backend/api/responses"
	pkgerrors "github.com/storemate/terminal-backend/pkg/errors"
	"github.com/storemate/terminal-backend/pkg/logger"
	"github.com/storemate/terminal-backend/pkg/upstream"
)

const reasonHeader = "X-Reason"

// Every mutating call must say why it happened; the reason travels to the
// upstream on the audit header. Reads are exempt.
var mutatingMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// Reason captures the X-Reason header into the request context and rejects
// mutating requests that arrive without one.
func Reason(minLen int, logg *logger.Logger) func(http.Handler) http.Handler {
	if minLen <= 0 {
		minLen = 1
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reason := strings.TrimSpace(r.Header.Get(reasonHeader))
			ctx := r.Context()
			if reason != "" {
				ctx = upstream.WithReason(ctx, reason)
			}

			if mutatingMethods[r.Method] {
				if reason == "" {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeReasonMissing, "X-Reason header required"))
					return
				}
				if len(reason) < minLen {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeReasonMissing, "reason is too short").
						WithDetails(map[string]any{"min_length": minLen}))
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

package upstream

import (
	"context"
	"net/http"
	"strings"
)

const (
	// HeaderReason carries the mandatory corporate justification string on
	// every mutating call.
	HeaderReason = "X-Reason"
	// HeaderIdempotencyKey dedupes replays of the same logical request.
	HeaderIdempotencyKey = "Idempotency-Key"
)

type reasonCtxKey struct{}

// WithReason stores the audit reason on the context so the transport layer
// can attach it without every call site handling the header.
func WithReason(ctx context.Context, reason string) context.Context {
	return context.WithValue(ctx, reasonCtxKey{}, strings.TrimSpace(reason))
}

// ReasonFromContext returns the audit reason previously stored, if any.
func ReasonFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if reason, ok := ctx.Value(reasonCtxKey{}).(string); ok {
		return reason
	}
	return ""
}

// decorate applies the cross-cutting request headers: bearer auth, the audit
// reason, and (for mutating sale calls) the idempotency key.
func (c *Client) decorate(ctx context.Context, req *http.Request, idempotencyKey string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
	if reason := ReasonFromContext(ctx); reason != "" {
		req.Header.Set(HeaderReason, reason)
	}
	if idempotencyKey != "" {
		req.Header.Set(HeaderIdempotencyKey, idempotencyKey)
	}
}

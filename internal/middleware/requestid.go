package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
	tokenSigKey  contextKey = "token_sig"
)

// RequestIDHeader is the inbound/outbound correlation header.
const RequestIDHeader = "X-Request-ID"

// RequestID attaches a correlation ID to the request context and echoes
// it on the response, so threat events can be matched to request logs.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFrom returns the correlation ID from the context, if set.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithUserID records the authenticated user identity on the context.
// Called by the host application's auth layer before admission runs on
// authenticated routes.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFrom returns the authenticated user identity, if known.
func UserIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// WithTokenSignature records the session token signature on the context.
func WithTokenSignature(ctx context.Context, sig string) context.Context {
	return context.WithValue(ctx, tokenSigKey, sig)
}

// TokenSignatureFrom returns the session token signature, if known.
func TokenSignatureFrom(ctx context.Context) string {
	sig, _ := ctx.Value(tokenSigKey).(string)
	return sig
}

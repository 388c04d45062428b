package middleware

import (
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"threatgate/internal/policy"
)

// writeDecision terminates the request with the decision's status and
// JSON body.
func writeDecision(w http.ResponseWriter, d policy.Decision) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(d.Status)
	_ = json.NewEncoder(w).Encode(d.Body)
}

// ClientIP extracts the client address from X-Forwarded-For, X-Real-IP,
// or RemoteAddr, in that order, stripping any port.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First entry in the comma-separated list is the client.
		ip := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
		return stripPort(ip)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return stripPort(strings.TrimSpace(xri))
	}
	return stripPort(r.RemoteAddr)
}

func stripPort(addr string) string {
	// [::1]:port style IPv6.
	if idx := strings.LastIndex(addr, "]:"); idx != -1 {
		return addr[1:idx]
	}
	// host:port, but only when there is exactly one colon (IPv4).
	if strings.Count(addr, ":") == 1 {
		host, _, _ := strings.Cut(addr, ":")
		return host
	}
	return addr
}

// tokenSignature pulls the signature segment of a bearer JWS from the
// Authorization header, falling back to the context value set by the
// auth layer. Only the signature is used as the ban identity; the
// token body never reaches the ban store.
func tokenSignature(r *http.Request) string {
	if sig := TokenSignatureFrom(r.Context()); sig != "" {
		return sig
	}
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	parts := strings.Split(auth[len(prefix):], ".")
	if len(parts) != 3 || parts[2] == "" {
		return ""
	}
	return parts[2]
}

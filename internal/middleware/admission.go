// Package middleware integrates the threat pipeline into the request
// path: the admission check (ban short-circuit + user-agent scan) runs
// on every request, and the payload guard deep-scans structured input
// on routes that accept it. Both escalate critical detections into the
// ban store before responding.
package middleware

import (
	"context"
	"net/http"
	"time"

	"threatgate/internal/banlist"
	"threatgate/internal/catalog"
	"threatgate/internal/logging"
	"threatgate/internal/metrics"
	"threatgate/internal/policy"
	"threatgate/internal/scanner"
)

// escalationTimeout bounds the durable write of an automatic ban so a
// slow durable store cannot stall the response.
const escalationTimeout = 5 * time.Second

// Guard holds the pipeline components shared by the middlewares. One
// Guard is constructed at bootstrap and passed to the server; there is
// no package-level instance.
type Guard struct {
	store   *banlist.Store
	scanner *scanner.Scanner
	engine  *policy.Engine
	seclog  *logging.SecurityLogger
}

// NewGuard wires the admission components.
func NewGuard(store *banlist.Store, sc *scanner.Scanner, engine *policy.Engine, seclog *logging.SecurityLogger) *Guard {
	return &Guard{store: store, scanner: sc, engine: engine, seclog: seclog}
}

// Admission short-circuits requests from banned identities, then scans
// the user agent. Banned identities get the ambiguous 404 deny; a
// user-agent threat gets the perimeter decision, with HIGH/CRITICAL
// matches escalating the client IP into the ban store before the
// response is written.
func (g *Guard) Admission(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)

		if kind, ok := g.bannedIdentity(r, ip); ok {
			metrics.BannedRequests.WithLabelValues(string(kind)).Inc()
			g.seclog.LogThreat(&logging.ThreatEvent{
				Event:     "banned_request",
				IP:        ip,
				UserID:    UserIDFrom(r.Context()),
				Action:    "deny",
				Method:    r.Method,
				Path:      r.URL.Path,
				RequestID: RequestIDFrom(r.Context()),
			})
			writeDecision(w, policy.AmbiguousDeny())
			return
		}

		result := g.scanner.ScanString(r.UserAgent())
		if !result.IsSafe {
			decision := g.engine.Decide(result, policy.ContextPerimeter)
			g.seclog.LogThreat(&logging.ThreatEvent{
				Event:     "threat_detected",
				IP:        ip,
				Severity:  result.MaxSeverity().String(),
				Threats:   result.ThreatTypes(),
				RiskScore: result.RiskScore,
				Action:    string(decision.Action),
				Method:    r.Method,
				Path:      r.URL.Path,
				RequestID: RequestIDFrom(r.Context()),
			})
			if result.MaxSeverity() >= catalog.SeverityHigh {
				g.escalate(r, banlist.KindIP, ip, result.Threats[0].Type)
			}
			if decision.Action != policy.ActionAllow {
				writeDecision(w, decision)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// bannedIdentity checks every identity kind available at this stage.
func (g *Guard) bannedIdentity(r *http.Request, ip string) (banlist.Kind, bool) {
	if g.store.IsBanned(banlist.KindIP, ip) {
		return banlist.KindIP, true
	}
	if uid := UserIDFrom(r.Context()); uid != "" && g.store.IsBanned(banlist.KindUser, uid) {
		return banlist.KindUser, true
	}
	if sig := tokenSignature(r); sig != "" && g.store.IsBanned(banlist.KindToken, sig) {
		return banlist.KindToken, true
	}
	return "", false
}

// escalate inserts an automatic ban. A durable-tier failure is a
// degraded-security event, not a request failure: the fast-tier ban is
// in place and the triggering request still receives its denial.
func (g *Guard) escalate(r *http.Request, kind banlist.Kind, identity, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), escalationTimeout)
	defer cancel()

	if err := g.store.Ban(ctx, kind, identity, reason); err != nil {
		metrics.Escalations.WithLabelValues(string(kind), "degraded").Inc()
		g.seclog.LogThreat(&logging.ThreatEvent{
			Event:     "escalation_degraded",
			IP:        ClientIP(r),
			Action:    "ban",
			Method:    r.Method,
			Path:      r.URL.Path,
			RequestID: RequestIDFrom(r.Context()),
			Error:     err.Error(),
		})
		return
	}
	metrics.Escalations.WithLabelValues(string(kind), "success").Inc()
	g.seclog.LogThreat(&logging.ThreatEvent{
		Event:     "auto_escalation",
		IP:        ClientIP(r),
		Action:    "ban",
		Method:    r.Method,
		Path:      r.URL.Path,
		RequestID: RequestIDFrom(r.Context()),
	})
}

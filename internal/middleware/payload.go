package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"threatgate/internal/banlist"
	"threatgate/internal/catalog"
	"threatgate/internal/logging"
	"threatgate/internal/policy"
)

// maxBodyBytes caps how much of a request body the guard inspects. The
// host is expected to enforce its own body-size limit upstream; this is
// a local backstop, not a replacement.
const maxBodyBytes = 1 << 20

// PayloadGuard deep-scans the structured request input (parsed JSON
// body, query parameters, and route variables) before the handler
// runs. A high-risk match gets the deceptive success response instead
// of a block, and a CRITICAL match escalates the client IP. The body is
// rewound afterwards so downstream handlers can read it again.
func (g *Guard) PayloadGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, restoreErr := collectPayload(r)
		if restoreErr != nil {
			// An unreadable body is the handler's problem, not a threat.
			next.ServeHTTP(w, r)
			return
		}

		result := g.scanner.DeepScan(payload)
		if !result.HasThreats {
			next.ServeHTTP(w, r)
			return
		}

		ip := ClientIP(r)
		decision := g.engine.DecideDeep(result, policy.ContextPayload)
		g.seclog.LogThreat(&logging.ThreatEvent{
			Event:     "threat_detected",
			IP:        ip,
			UserID:    UserIDFrom(r.Context()),
			Severity:  result.MaxSeverity().String(),
			Threats:   result.ThreatTypes(),
			RiskScore: result.TotalRisk,
			Action:    string(decision.Action),
			Method:    r.Method,
			Path:      r.URL.Path,
			RequestID: RequestIDFrom(r.Context()),
		})

		if result.MaxSeverity() >= catalog.SeverityCritical {
			g.escalate(r, banlist.KindIP, ip, "CRITICAL: malicious input")
		}

		if decision.Action != policy.ActionAllow {
			writeDecision(w, decision)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// collectPayload assembles the {body, query, params} value the deep
// scan walks. JSON bodies are decoded; other content types contribute
// the raw text as a single string, length-capped.
func collectPayload(r *http.Request) (map[string]any, error) {
	payload := map[string]any{}

	query := map[string]any{}
	for key, values := range r.URL.Query() {
		elems := make([]any, len(values))
		for i, v := range values {
			elems[i] = v
		}
		query[key] = elems
	}
	if len(query) > 0 {
		payload["query"] = query
	}

	if vars := mux.Vars(r); len(vars) > 0 {
		params := map[string]any{}
		for k, v := range vars {
			params[k] = v
		}
		payload["params"] = params
	}

	if r.Body == nil || r.Body == http.NoBody {
		return payload, nil
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if len(raw) == 0 {
		return payload, nil
	}

	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var body any
		if err := json.Unmarshal(raw, &body); err == nil {
			payload["body"] = body
			return payload, nil
		}
		// Malformed JSON still gets scanned as text.
	}
	payload["body"] = string(raw)
	return payload, nil
}

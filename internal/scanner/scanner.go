// Package scanner tests untrusted strings and JSON-like values against
// the threat signature catalog. ScanString and DeepScan are pure with
// respect to their inputs and are safe for concurrent use; the only
// internal state is a result cache.
package scanner

import (
	"fmt"
	"hash/fnv"
	"time"

	"threatgate/internal/catalog"
	"threatgate/internal/metrics"
)

// Threat is a single signature match in a scan result.
type Threat struct {
	Type        string           `json:"type"`
	Severity    catalog.Severity `json:"severity"`
	Description string           `json:"description"`
}

// ScanResult is the outcome of scanning one string.
type ScanResult struct {
	// IsSafe is true exactly when Threats is empty.
	IsSafe bool `json:"is_safe"`
	// Threats lists matched signatures in catalog order.
	Threats []Threat `json:"threats"`
	// RiskScore is the sum of the matched severities' scores.
	RiskScore int `json:"risk_score"`
	// Action is derived from RiskScore: >=75 block, >=50 warn, else allow.
	Action string `json:"action"`
}

// Risk thresholds for the derived action.
const (
	BlockThreshold = 75
	WarnThreshold  = 50
)

// Default scanner limits.
const (
	// MaxStringLength is the oversized-string guard. Longer strings are
	// flagged without running the pattern rules, which protects the
	// regex engine from algorithmic-complexity payloads.
	MaxStringLength = 10000

	// MaxDepth caps the deep-scan recursion. Values nested deeper are
	// treated as safe; payloads that deep should be rejected upstream
	// by a body-size limit.
	MaxDepth = 5

	defaultCacheSize = 10000
	defaultCacheTTL  = 5 * time.Minute
)

// PayloadTooLarge is the threat type reported for oversized strings.
const PayloadTooLarge = "PAYLOAD_TOO_LARGE"

// Scanner matches inputs against an injected catalog.
type Scanner struct {
	catalog *catalog.Catalog
	cache   *resultCache
}

// New creates a scanner over the given catalog.
func New(c *catalog.Catalog) *Scanner {
	return &Scanner{
		catalog: c,
		cache:   newResultCache(defaultCacheSize, defaultCacheTTL),
	}
}

// Close releases the scanner's cache resources.
func (s *Scanner) Close() {
	s.cache.close()
}

// ScanString tests a single string against every signature in the
// catalog and accumulates all matches. Accumulating (rather than
// stopping at the first hit) is the authoritative policy: compound
// payloads that trip several signatures must cross the blocking
// threshold even when each individual severity would not.
//
// The empty string is safe by contract.
func (s *Scanner) ScanString(input string) ScanResult {
	if input == "" {
		return safeResult()
	}

	start := time.Now()
	defer func() {
		metrics.ScanDuration.WithLabelValues("shallow").Observe(time.Since(start).Seconds())
	}()

	key := cacheKey(input)
	if cached, ok := s.cache.get(key); ok {
		metrics.ScanCacheHits.Inc()
		return cached
	}
	metrics.ScanCacheMisses.Inc()

	result := s.scan(input)
	s.cache.set(key, result)
	return result
}

// scan runs the uncached match loop.
func (s *Scanner) scan(input string) ScanResult {
	if len(input) > MaxStringLength {
		return oversizedResult()
	}

	var threats []Threat
	risk := 0
	for _, sig := range s.catalog.Signatures() {
		if sig.Regex.MatchString(input) {
			threats = append(threats, Threat{
				Type:        sig.Key,
				Severity:    sig.Severity,
				Description: sig.Description,
			})
			risk += sig.Severity.Score()
			metrics.ThreatsDetected.WithLabelValues(sig.Key, sig.Severity.String()).Inc()
		}
	}

	if len(threats) == 0 {
		return safeResult()
	}
	return ScanResult{
		IsSafe:    false,
		Threats:   threats,
		RiskScore: risk,
		Action:    actionFor(risk),
	}
}

func safeResult() ScanResult {
	return ScanResult{IsSafe: true, Action: ActionAllow}
}

func oversizedResult() ScanResult {
	score := catalog.SeverityHigh.Score()
	metrics.ThreatsDetected.WithLabelValues(PayloadTooLarge, catalog.SeverityHigh.String()).Inc()
	return ScanResult{
		IsSafe: false,
		Threats: []Threat{{
			Type:        PayloadTooLarge,
			Severity:    catalog.SeverityHigh,
			Description: "String exceeds the maximum scan length",
		}},
		RiskScore: score,
		Action:    actionFor(score),
	}
}

// Derived action names.
const (
	ActionAllow = "allow"
	ActionWarn  = "warn"
	ActionBlock = "block"
)

func actionFor(risk int) string {
	switch {
	case risk >= BlockThreshold:
		return ActionBlock
	case risk >= WarnThreshold:
		return ActionWarn
	default:
		return ActionAllow
	}
}

// MaxSeverity returns the highest severity among the matched threats.
// Callers must check IsSafe first; a safe result reports SeverityLow.
func (r ScanResult) MaxSeverity() catalog.Severity {
	max := catalog.SeverityLow
	for _, t := range r.Threats {
		if t.Severity > max {
			max = t.Severity
		}
	}
	return max
}

// ThreatTypes returns the matched signature keys in order.
func (r ScanResult) ThreatTypes() []string {
	types := make([]string, len(r.Threats))
	for i, t := range r.Threats {
		types[i] = t.Type
	}
	return types
}

func cacheKey(input string) string {
	h := fnv.New64a()
	h.Write([]byte(input))
	return fmt.Sprintf("%x", h.Sum64())
}

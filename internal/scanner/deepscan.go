package scanner

import (
	"reflect"
	"time"

	"threatgate/internal/catalog"
	"threatgate/internal/metrics"
)

// DeepScanResult is the outcome of recursively scanning a JSON-like value.
type DeepScanResult struct {
	HasThreats bool     `json:"has_threats"`
	Threats    []Threat `json:"threats"`
	TotalRisk  int      `json:"total_risk"`
}

// DeepScan recursively visits every reachable string in a JSON-like
// value (map[string]any, []any, string, primitives), scanning both map
// keys and values. It stops at the first detected threat within a
// branch: the caller needs a decision, not an inventory of a large
// hostile payload.
//
// Liveness guards, not security guarantees:
//   - recursion depth is capped at MaxDepth; deeper values are treated
//     as safe (reject extreme nesting upstream with a body-size limit)
//   - visited containers are tracked by identity, so cyclic structures
//     terminate instead of recursing forever
//   - strings longer than MaxStringLength are flagged PAYLOAD_TOO_LARGE
//     without running the pattern rules
//
// Nil and non-string scalars are safe by contract.
func (s *Scanner) DeepScan(value any) DeepScanResult {
	start := time.Now()
	defer func() {
		metrics.ScanDuration.WithLabelValues("deep").Observe(time.Since(start).Seconds())
	}()

	visited := make(map[uintptr]struct{})
	return s.walk(value, 0, visited)
}

func (s *Scanner) walk(value any, depth int, visited map[uintptr]struct{}) DeepScanResult {
	if value == nil || depth > MaxDepth {
		return DeepScanResult{}
	}

	switch v := value.(type) {
	case string:
		return toDeep(s.scanMaybeOversized(v))

	case map[string]any:
		if !markVisited(v, visited) {
			return DeepScanResult{}
		}
		for key, elem := range v {
			if r := toDeep(s.scanMaybeOversized(key)); r.HasThreats {
				return r
			}
			if r := s.walk(elem, depth+1, visited); r.HasThreats {
				return r
			}
		}
		return DeepScanResult{}

	case []any:
		if !markVisited(v, visited) {
			return DeepScanResult{}
		}
		for _, elem := range v {
			if r := s.walk(elem, depth+1, visited); r.HasThreats {
				return r
			}
		}
		return DeepScanResult{}

	case map[string]string:
		for key, elem := range v {
			if r := toDeep(s.scanMaybeOversized(key)); r.HasThreats {
				return r
			}
			if r := toDeep(s.scanMaybeOversized(elem)); r.HasThreats {
				return r
			}
		}
		return DeepScanResult{}

	case []string:
		for _, elem := range v {
			if r := toDeep(s.scanMaybeOversized(elem)); r.HasThreats {
				return r
			}
		}
		return DeepScanResult{}

	default:
		// Numbers, booleans, and anything else without string content.
		return DeepScanResult{}
	}
}

// scanMaybeOversized applies the length guard before the cached scan so
// huge strings never reach the regex engine or the cache.
func (s *Scanner) scanMaybeOversized(input string) ScanResult {
	if len(input) > MaxStringLength {
		return oversizedResult()
	}
	return s.ScanString(input)
}

// markVisited records a container identity, reporting false when the
// container was already seen on this scan (a cycle).
func markVisited(container any, visited map[uintptr]struct{}) bool {
	ptr := reflect.ValueOf(container).Pointer()
	if _, seen := visited[ptr]; seen {
		return false
	}
	visited[ptr] = struct{}{}
	return true
}

func toDeep(r ScanResult) DeepScanResult {
	if r.IsSafe {
		return DeepScanResult{}
	}
	return DeepScanResult{
		HasThreats: true,
		Threats:    r.Threats,
		TotalRisk:  r.RiskScore,
	}
}

// MaxSeverity returns the highest severity among the matched threats.
func (r DeepScanResult) MaxSeverity() catalog.Severity {
	return ScanResult{Threats: r.Threats}.MaxSeverity()
}

// ThreatTypes returns the matched signature keys in order.
func (r DeepScanResult) ThreatTypes() []string {
	return ScanResult{Threats: r.Threats}.ThreatTypes()
}

// Package catalog holds the static table of threat signatures the
// scanner matches inputs against. The catalog is compiled once at
// startup and is immutable afterwards; components receive it by
// reference instead of importing package-level state, so tests can run
// against trimmed or custom rule sets.
package catalog

import (
	"fmt"
	"regexp"
)

// Severity classifies how dangerous a matched signature is.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Score maps a severity to its fixed numeric risk contribution.
func (s Severity) Score() int {
	switch s {
	case SeverityCritical:
		return 100
	case SeverityHigh:
		return 75
	case SeverityMedium:
		return 50
	case SeverityLow:
		return 25
	default:
		return 0
	}
}

// SuggestedAction names the action a lone match at this severity
// suggests. The decision policy derives the actual action from the
// cumulative risk score; this is advisory metadata carried alongside
// each signature.
func (s Severity) SuggestedAction() string {
	switch s {
	case SeverityCritical, SeverityHigh:
		return "block"
	case SeverityMedium:
		return "warn"
	default:
		return "log"
	}
}

// Signature is a single named threat rule before compilation.
type Signature struct {
	// Key uniquely identifies the signature (e.g. "SQL_INJECTION").
	Key string
	// Pattern is the regular expression tested against input strings.
	Pattern string
	// Severity is the tier the signature belongs to.
	Severity Severity
	// Description is human-readable, for operators only.
	Description string
}

// CompiledSignature is a signature with its rule compiled.
type CompiledSignature struct {
	Key         string
	Regex       *regexp.Regexp
	Severity    Severity
	Description string
}

// Catalog is an immutable, ordered set of compiled signatures.
// Iteration order is declaration order, which keeps scan results
// deterministic.
type Catalog struct {
	signatures []CompiledSignature
}

// Compile validates and compiles a signature set. A malformed rule is a
// startup error, never a scan-time one.
func Compile(signatures []Signature) (*Catalog, error) {
	compiled := make([]CompiledSignature, 0, len(signatures))
	seen := make(map[string]struct{}, len(signatures))

	for _, sig := range signatures {
		if sig.Key == "" {
			return nil, fmt.Errorf("catalog: signature with empty key")
		}
		if _, dup := seen[sig.Key]; dup {
			return nil, fmt.Errorf("catalog: duplicate signature key %q", sig.Key)
		}
		seen[sig.Key] = struct{}{}

		re, err := regexp.Compile(sig.Pattern)
		if err != nil {
			return nil, fmt.Errorf("catalog: compile %q: %w", sig.Key, err)
		}

		compiled = append(compiled, CompiledSignature{
			Key:         sig.Key,
			Regex:       re,
			Severity:    sig.Severity,
			Description: sig.Description,
		})
	}

	return &Catalog{signatures: compiled}, nil
}

// MustCompile is Compile for static signature sets known to be valid.
func MustCompile(signatures []Signature) *Catalog {
	c, err := Compile(signatures)
	if err != nil {
		panic(err)
	}
	return c
}

// Signatures returns the compiled signatures in declaration order. The
// returned slice must not be mutated.
func (c *Catalog) Signatures() []CompiledSignature {
	return c.signatures
}

// Len returns the number of signatures in the catalog.
func (c *Catalog) Len() int { return len(c.signatures) }

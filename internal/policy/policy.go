// Package policy converts scan results into one of four request
// outcomes: allow, warn, block, or deceive. The mapping is a pure
// function of the cumulative risk score and the evaluation context;
// the engine carries only tunable thresholds.
package policy

import (
	"net/http"

	"threatgate/internal/metrics"
	"threatgate/internal/scanner"
)

// Action is the decision outcome for a request.
type Action string

const (
	// ActionAllow lets the request proceed with no side effect.
	ActionAllow Action = "allow"
	// ActionWarn returns a structured validation error. The matched
	// pattern detail is never echoed to the caller.
	ActionWarn Action = "warn"
	// ActionBlock denies the request with a generic message. Used on
	// the perimeter (e.g. scanner user agents), where the client
	// already knows it is probing.
	ActionBlock Action = "block"
	// ActionDeceive responds with a success shape carrying no data,
	// indistinguishable from a legitimate success. Used on the payload
	// path so a crafted injection gets no detection signal back.
	ActionDeceive Action = "deceive"
)

// Context selects which high-risk outcome applies. Perimeter detection
// blocks outright; payload detection deceives instead, a deliberate
// asymmetry: a scanning tool already knows it is scanning, while a
// human crafting payloads benefits from a clear rejection signal.
type Context string

const (
	ContextPerimeter Context = "perimeter"
	ContextPayload   Context = "payload"
)

// Body is the JSON response envelope shared by all non-allow outcomes.
type Body struct {
	Success bool       `json:"success"`
	Data    any        `json:"data"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody is the client-facing error detail. Deliberately generic.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Decision is the concrete response for a non-allow action.
type Decision struct {
	Action Action
	Status int
	Body   Body
}

// Engine holds the decision thresholds. Zero values fall back to the
// canonical 75/50 split.
type Engine struct {
	blockThreshold int
	warnThreshold  int
}

// New creates an engine with the given thresholds; pass zeros for the
// defaults.
func New(blockThreshold, warnThreshold int) *Engine {
	if blockThreshold <= 0 {
		blockThreshold = scanner.BlockThreshold
	}
	if warnThreshold <= 0 {
		warnThreshold = scanner.WarnThreshold
	}
	return &Engine{blockThreshold: blockThreshold, warnThreshold: warnThreshold}
}

// Decide classifies a shallow scan result.
func (e *Engine) Decide(result scanner.ScanResult, ctx Context) Decision {
	return e.decide(result.RiskScore, ctx)
}

// DecideDeep classifies a deep scan result.
func (e *Engine) DecideDeep(result scanner.DeepScanResult, ctx Context) Decision {
	return e.decide(result.TotalRisk, ctx)
}

func (e *Engine) decide(risk int, ctx Context) Decision {
	var d Decision
	switch {
	case risk >= e.blockThreshold:
		if ctx == ContextPayload {
			d = Deceive()
		} else {
			d = Block()
		}
	case risk >= e.warnThreshold:
		d = Warn()
	default:
		d = Decision{Action: ActionAllow}
	}
	metrics.Decisions.WithLabelValues(string(d.Action), string(ctx)).Inc()
	return d
}

// Block is the generic 403 denial.
func Block() Decision {
	return Decision{
		Action: ActionBlock,
		Status: http.StatusForbidden,
		Body: Body{
			Success: false,
			Error:   &ErrorBody{Code: "FORBIDDEN", Message: "permission denied"},
		},
	}
}

// Warn is the 400 validation-error shape. No field or pattern names.
func Warn() Decision {
	return Decision{
		Action: ActionWarn,
		Status: http.StatusBadRequest,
		Body: Body{
			Success: false,
			Error:   &ErrorBody{Code: "VALIDATION_ERROR", Message: "request could not be processed"},
		},
	}
}

// Deceive is the success-shaped honeypot response.
func Deceive() Decision {
	return Decision{
		Action: ActionDeceive,
		Status: http.StatusOK,
		Body:   Body{Success: true, Data: nil},
	}
}

// AmbiguousDeny is the response for already-banned identities. A 404
// rather than a 403, so the client cannot confirm a ban system exists.
func AmbiguousDeny() Decision {
	return Decision{
		Action: ActionBlock,
		Status: http.StatusNotFound,
		Body: Body{
			Success: false,
			Error:   &ErrorBody{Code: "NOT_FOUND", Message: "resource not found"},
		},
	}
}

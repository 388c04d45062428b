package policy

import (
	"net/http"
	"testing"

	"threatgate/internal/scanner"
)

func TestDecideThresholds(t *testing.T) {
	e := New(0, 0)

	tests := []struct {
		name   string
		risk   int
		ctx    Context
		action Action
		status int
	}{
		{"allow below warn", 25, ContextPerimeter, ActionAllow, 0},
		{"warn at threshold", 50, ContextPerimeter, ActionWarn, http.StatusBadRequest},
		{"warn below block", 74, ContextPayload, ActionWarn, http.StatusBadRequest},
		{"block perimeter", 75, ContextPerimeter, ActionBlock, http.StatusForbidden},
		{"block compound", 175, ContextPerimeter, ActionBlock, http.StatusForbidden},
		{"deceive payload", 75, ContextPayload, ActionDeceive, http.StatusOK},
		{"deceive compound payload", 175, ContextPayload, ActionDeceive, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := e.Decide(scanner.ScanResult{RiskScore: tt.risk}, tt.ctx)
			if d.Action != tt.action {
				t.Errorf("Action = %q, want %q", d.Action, tt.action)
			}
			if d.Status != tt.status {
				t.Errorf("Status = %d, want %d", d.Status, tt.status)
			}
		})
	}
}

func TestDecideDeepMatchesShallow(t *testing.T) {
	e := New(0, 0)
	shallow := e.Decide(scanner.ScanResult{RiskScore: 100}, ContextPayload)
	deep := e.DecideDeep(scanner.DeepScanResult{TotalRisk: 100}, ContextPayload)
	if shallow.Action != deep.Action || shallow.Status != deep.Status {
		t.Errorf("deep decision %+v differs from shallow %+v", deep, shallow)
	}
}

func TestCustomThresholds(t *testing.T) {
	e := New(200, 100)
	if d := e.Decide(scanner.ScanResult{RiskScore: 175}, ContextPerimeter); d.Action != ActionWarn {
		t.Errorf("risk 175 with block threshold 200: Action = %q, want warn", d.Action)
	}
	if d := e.Decide(scanner.ScanResult{RiskScore: 75}, ContextPerimeter); d.Action != ActionAllow {
		t.Errorf("risk 75 with warn threshold 100: Action = %q, want allow", d.Action)
	}
}

func TestBlockBodyIsGeneric(t *testing.T) {
	d := Block()
	if d.Body.Success {
		t.Error("block body claims success")
	}
	if d.Body.Error == nil || d.Body.Error.Code != "FORBIDDEN" {
		t.Fatalf("Error = %+v, want FORBIDDEN", d.Body.Error)
	}
	if d.Body.Error.Message != "permission denied" {
		t.Errorf("Message = %q leaks detail", d.Body.Error.Message)
	}
}

func TestWarnBodyNamesNoPattern(t *testing.T) {
	d := Warn()
	if d.Status != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", d.Status)
	}
	if d.Body.Error == nil || d.Body.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("Error = %+v, want VALIDATION_ERROR", d.Body.Error)
	}
}

func TestDeceiveLooksLikeSuccess(t *testing.T) {
	d := Deceive()
	if d.Status != http.StatusOK {
		t.Errorf("Status = %d, want 200", d.Status)
	}
	if !d.Body.Success || d.Body.Data != nil || d.Body.Error != nil {
		t.Errorf("deceive body not success-shaped: %+v", d.Body)
	}
}

func TestAmbiguousDenyIsNotFound(t *testing.T) {
	d := AmbiguousDeny()
	if d.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", d.Status)
	}
	if d.Body.Error == nil || d.Body.Error.Code != "NOT_FOUND" {
		t.Fatalf("Error = %+v, want NOT_FOUND", d.Body.Error)
	}
}

package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"threatgate/internal/banlist"
)

func TestPayloadGuardDeceivesOnInjectedBody(t *testing.T) {
	guard, store := newTestGuard(t)
	var called bool
	handler := guard.PayloadGuard(nextRecorder(&called))

	body := `{"username": "admin", "filter": "'; DROP TABLE users; --"}`
	req := httptest.NewRequest(http.MethodPost, "/api/users/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.1:55000"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if called {
		t.Fatal("hostile payload reached the handler")
	}
	// The deceptive response is indistinguishable from a real success.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeBody(t, rec)
	if !resp.Success || resp.Data != nil || resp.Error != nil {
		t.Errorf("body = %+v, want success with null data", resp)
	}
	// Critical match escalates the source IP.
	if !store.IsBanned(banlist.KindIP, "203.0.113.1") {
		t.Error("critical payload did not escalate the IP")
	}
}

func TestPayloadGuardHighSeverityDeceivesWithoutEscalation(t *testing.T) {
	guard, store := newTestGuard(t)
	var called bool
	handler := guard.PayloadGuard(nextRecorder(&called))

	body := `{"comment": "<script>alert(1)</script>"}`
	req := httptest.NewRequest(http.MethodPost, "/api/comments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.2:55000"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if called || rec.Code != http.StatusOK {
		t.Fatalf("called=%v status=%d, want deceptive 200", called, rec.Code)
	}
	// HIGH alone stays below the auto-escalation bar.
	if store.IsBanned(banlist.KindIP, "203.0.113.2") {
		t.Error("high-severity match escalated the IP")
	}
}

func TestPayloadGuardScansQueryParameters(t *testing.T) {
	guard, _ := newTestGuard(t)
	var called bool
	handler := guard.PayloadGuard(nextRecorder(&called))

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=%27%3B+DROP+TABLE+users%3B+--", nil)
	req.RemoteAddr = "203.0.113.3:55000"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if called || rec.Code != http.StatusOK {
		t.Errorf("hostile query parameter: called=%v status=%d, want deceptive 200", called, rec.Code)
	}
}

func TestPayloadGuardScansRouteVars(t *testing.T) {
	guard, _ := newTestGuard(t)
	var called bool

	router := mux.NewRouter()
	sub := router.PathPrefix("/api").Subrouter()
	sub.Use(guard.PayloadGuard)
	sub.Handle("/files/{name}", nextRecorder(&called))

	req := httptest.NewRequest(http.MethodGet, "/api/files/$where", nil)
	req.RemoteAddr = "203.0.113.4:55000"

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if called {
		t.Error("hostile route variable reached the handler")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want deceptive 200", rec.Code)
	}
}

func TestPayloadGuardPassesCleanBodyAndRewindsIt(t *testing.T) {
	guard, _ := newTestGuard(t)

	var got string
	handler := guard.PayloadGuard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("handler read: %v", err)
		}
		got = string(raw)
		w.WriteHeader(http.StatusCreated)
	}))

	body := `{"name": "alice", "note": "hello"}`
	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.5:55000"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if got != body {
		t.Errorf("handler saw body %q, want the original rewound", got)
	}
}

func TestPayloadGuardScansMalformedJSONAsText(t *testing.T) {
	guard, _ := newTestGuard(t)
	var called bool
	handler := guard.PayloadGuard(nextRecorder(&called))

	// Broken JSON, but the raw text still carries an injection.
	body := `{"q": "1 UNION SELECT password FROM accounts`
	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.6:55000"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if called {
		t.Error("malformed hostile body reached the handler")
	}
}

func TestPayloadGuardAllowsEmptyBody(t *testing.T) {
	guard, _ := newTestGuard(t)
	var called bool
	handler := guard.PayloadGuard(nextRecorder(&called))

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.RemoteAddr = "203.0.113.7:55000"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Error("bodyless request blocked")
	}
}

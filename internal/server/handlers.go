package server

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"threatgate/internal/banlist"
	"threatgate/internal/logging"
)

type banRequest struct {
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListBans(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.banKind(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.store.List(kind))
}

func (s *Server) handleCreateBan(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.banKind(w, r)
	if !ok {
		return
	}

	var req banRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Value == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "value is required"})
		return
	}
	if req.Reason == "" {
		req.Reason = "manual ban"
	}

	ctx, cancel := s.durableCtx(r.Context())
	defer cancel()
	if err := s.store.Ban(ctx, kind, req.Value, req.Reason); err != nil {
		logging.Error().Err(err).Str("kind", string(kind)).Msg("manual ban failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "ban not persisted"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteBan(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.banKind(w, r)
	if !ok {
		return
	}

	ctx, cancel := s.durableCtx(r.Context())
	defer cancel()
	if err := s.store.Unban(ctx, kind, mux.Vars(r)["value"]); err != nil {
		logging.Error().Err(err).Str("kind", string(kind)).Msg("manual unban failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "unban not persisted"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type scanRequest struct {
	// Input is scanned shallowly when set.
	Input string `json:"input,omitempty"`
	// Payload is deep-scanned when set.
	Payload any `json:"payload,omitempty"`
}

// handleScan exposes the pure scanner to external validation layers.
// Full detail is returned: this endpoint serves operators, not clients.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	if req.Payload != nil {
		writeJSON(w, http.StatusOK, s.scanner.DeepScan(req.Payload))
		return
	}
	writeJSON(w, http.StatusOK, s.scanner.ScanString(req.Input))
}

// handleEcho is the sample business handler behind the guard chain.
func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    map[string]string{"method": r.Method, "path": r.URL.Path},
	})
}

func (s *Server) banKind(w http.ResponseWriter, r *http.Request) (banlist.Kind, bool) {
	kind := banlist.Kind(mux.Vars(r)["kind"])
	if !kind.Valid() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown ban kind"})
		return "", false
	}
	return kind, true
}

func (s *Server) durableCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.cfg.BanStore.DurableTimeout)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

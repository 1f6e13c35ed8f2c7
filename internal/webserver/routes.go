package webserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/stagegate/stagegate/internal/reconcile"
	"github.com/stagegate/stagegate/internal/webhook"
)

// Version is set at build time or defaults to dev.
var Version = "dev"

// registerRoutes sets up the webhook and manual-processing routes.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /webhook/kaiten", s.handleWebhook)
	mux.HandleFunc("POST /process/card/{id}", s.handleProcessCard)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: Version})
}

// handleWebhook receives a board event, extracts the card id and
// processes the card. Events that are clearly not card updates are
// acknowledged without processing so the board does not retry them.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	if webhook.IgnorableEvent(payload) {
		s.logger.DebugContext(r.Context(), "ignoring non-card event")
		writeJSON(w, http.StatusOK, webhookResponse{Status: "ignored"})
		return
	}

	cardID, ok := webhook.ResolveCardID(payload)
	if !ok {
		// Fall back to query parameters for callers that pass the id
		// outside the body.
		params := make(map[string]string)
		for key := range r.URL.Query() {
			params[key] = r.URL.Query().Get(key)
		}
		cardID, ok = webhook.ResolveFromQuery(params)
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "card_id not found in request")
		return
	}

	s.process(w, r, cardID)
}

// handleProcessCard processes a single card by id, for manual runs.
func (s *Server) handleProcessCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || cardID <= 0 {
		writeError(w, http.StatusBadRequest, "card id must be a positive integer")
		return
	}
	s.process(w, r, cardID)
}

func (s *Server) process(w http.ResponseWriter, r *http.Request, cardID int64) {
	eval, err := s.cfg.Processor.ProcessOne(r.Context(), cardID)
	if err != nil {
		if errors.Is(err, reconcile.ErrNoWritableFields) {
			s.logger.WarnContext(r.Context(), "nothing to write for card", "card", cardID)
			writeJSON(w, http.StatusOK, webhookResponse{Status: "skipped", CardID: cardID})
			return
		}
		s.logger.ErrorContext(r.Context(), "card processing failed", "card", cardID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, processResponse{
		Status:        "processed",
		CardID:        cardID,
		QualityTier:   eval.QualityTier,
		ContentType:   eval.ContentType,
		PresenterTier: eval.PresenterTier,
		ReachTier:     eval.ReachTier,
	})
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type webhookResponse struct {
	Status string `json:"status"`
	CardID int64  `json:"card_id,omitempty"`
}

type processResponse struct {
	Status        string `json:"status"`
	CardID        int64  `json:"card_id"`
	QualityTier   string `json:"quality_tier"`
	ContentType   string `json:"content_type"`
	PresenterTier string `json:"presenter_tier"`
	ReachTier     string `json:"reach_tier"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg, Code: code})
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/melville-ops/melville/internal/convo"
	"github.com/melville-ops/melville/internal/view"
)

type queryRequest struct {
	Query string `json:"query"`
}

// query runs one conversation turn. The transcript always records an
// assistant message, even when the reasoning call failed; the 502 here mirrors
// the degraded outcome for API consumers that want to distinguish it.
func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	turn, err := s.engine.Submit(r.Context(), req.Query)
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	s.writeTurn(w, turn)
}

func (s *Server) writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, convo.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, "query must not be empty", "")
	case errors.Is(err, convo.ErrTurnInFlight):
		writeError(w, http.StatusConflict, "a query is already being processed", "")
	default:
		writeError(w, http.StatusInternalServerError, "failed to process query", err.Error())
	}
}

func (s *Server) writeTurn(w http.ResponseWriter, turn convo.Turn) {
	if turn.Err != nil {
		writeError(w, http.StatusBadGateway, "Failed to process query", turn.Err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"aiResponse": turn.Assistant.Content})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"messages":     s.engine.Messages(),
		"view":         s.views.Current(),
		"analysisMode": s.engine.AnalysisMode(),
		"inFlight":     s.engine.InFlight(),
	})
}

type viewRequest struct {
	View string `json:"view"`
}

func (s *Server) setView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := s.views.Set(view.View(req.View)); err != nil {
		writeError(w, http.StatusBadRequest, "unknown view", req.View)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) closeView(w http.ResponseWriter, r *http.Request) {
	s.views.Close()
	w.WriteHeader(http.StatusNoContent)
}

type quickActionRequest struct {
	Label string `json:"label"`
}

func (s *Server) quickAction(w http.ResponseWriter, r *http.Request) {
	var req quickActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	res, err := s.views.RunQuickAction(r.Context(), req.Label)
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	if !res.Submitted {
		writeJSON(w, http.StatusOK, map[string]string{"view": string(res.View)})
		return
	}
	s.writeTurn(w, res.Turn)
}

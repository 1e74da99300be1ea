package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/melville-ops/melville/internal/events"
	"github.com/melville-ops/melville/internal/store"
)

// writeStoreError surfaces a record-store failure as a recoverable 502 so the
// client can show a retry affordance instead of an empty list.
func (s *Server) writeStoreError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, "error", err)
	writeError(w, http.StatusBadGateway, msg, err.Error())
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (s *Server) listFindings(w http.ResponseWriter, r *http.Request) {
	findings, err := s.records.ListFindings(r.Context())
	if err != nil {
		s.writeStoreError(w, "could not load findings", err)
		return
	}
	if findings == nil {
		findings = []store.Finding{}
	}
	writeJSON(w, http.StatusOK, findings)
}

type createFindingRequest struct {
	FindingSummary string `json:"finding_summary"`
	Details        string `json:"details"`
}

func (s *Server) createFinding(w http.ResponseWriter, r *http.Request) {
	var req createFindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.FindingSummary) == "" {
		writeError(w, http.StatusBadRequest, "finding_summary is required", "")
		return
	}

	id, err := s.records.CreateFinding(r.Context(), req.FindingSummary, req.Details)
	if err != nil {
		s.writeStoreError(w, "could not create finding", err)
		return
	}

	s.bus.Publish(events.SubjectFindingCreated, events.RecordCreated{ID: id, Timestamp: time.Now().UTC()})
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) ignoreFinding(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid finding id", "")
		return
	}

	if err := s.records.SetFindingStatus(r.Context(), id, "ignored"); err != nil {
		s.writeStoreError(w, "could not update finding", err)
		return
	}

	s.bus.Publish(events.SubjectFindingIgnored, events.FindingIgnored{ID: id, Timestamp: time.Now().UTC()})
	w.WriteHeader(http.StatusNoContent)
}

// convertFinding triages a finding into a scheduled maintenance task.
func (s *Server) convertFinding(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid finding id", "")
		return
	}

	var req store.NewTask
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	switch req.Priority {
	case "low", "medium", "high":
	default:
		writeError(w, http.StatusBadRequest, "priority must be low, medium, or high", "")
		return
	}
	if req.MachineID == "" || req.DueBy.IsZero() {
		writeError(w, http.StatusBadRequest, "machine_id and due_by are required", "")
		return
	}

	taskID, err := s.records.ConvertFindingToTask(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, store.ErrFindingNotFound) {
			writeError(w, http.StatusNotFound, "finding not found", "")
			return
		}
		s.writeStoreError(w, "could not convert finding", err)
		return
	}

	s.bus.Publish(events.SubjectTaskCreated, events.RecordCreated{ID: taskID, Timestamp: time.Now().UTC()})
	writeJSON(w, http.StatusCreated, map[string]int64{"id": taskID})
}

func (s *Server) listMaintenance(w http.ResponseWriter, r *http.Request) {
	filter := store.TaskFilter{
		Status:   r.URL.Query().Get("status"),
		Mechanic: r.URL.Query().Get("mechanic"),
		Priority: strings.ToLower(r.URL.Query().Get("priority")),
	}

	tasks, err := s.records.ListMaintenanceTasks(r.Context(), filter)
	if err != nil {
		s.writeStoreError(w, "could not load tasks", err)
		return
	}
	if tasks == nil {
		tasks = []store.MaintenanceTask{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) createMaintenance(w http.ResponseWriter, r *http.Request) {
	var req store.NewTask
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	switch req.Priority {
	case "low", "medium", "high":
	default:
		writeError(w, http.StatusBadRequest, "priority must be low, medium, or high", "")
		return
	}
	if req.MachineID == "" || req.DueBy.IsZero() {
		writeError(w, http.StatusBadRequest, "machine_id and due_by are required", "")
		return
	}

	id, err := s.records.CreateMaintenanceTask(r.Context(), req)
	if err != nil {
		s.writeStoreError(w, "could not create task", err)
		return
	}

	s.bus.Publish(events.SubjectTaskCreated, events.RecordCreated{ID: id, Timestamp: time.Now().UTC()})
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

type completeTaskRequest struct {
	Notes string `json:"notes"`
}

func (s *Server) completeMaintenance(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id", "")
		return
	}

	var req completeTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := s.records.CompleteMaintenanceTask(r.Context(), id, req.Notes); err != nil {
		if errors.Is(err, store.ErrTaskNotOpen) {
			writeError(w, http.StatusConflict, "task is not open", "")
			return
		}
		s.writeStoreError(w, "could not complete task", err)
		return
	}

	s.bus.Publish(events.SubjectTaskCompleted, events.TaskCompleted{ID: id, Notes: req.Notes, Timestamp: time.Now().UTC()})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listMechanics(w http.ResponseWriter, r *http.Request) {
	mechanics, err := s.records.ListMechanics(r.Context())
	if err != nil {
		s.writeStoreError(w, "could not load mechanics", err)
		return
	}
	if mechanics == nil {
		mechanics = []store.Mechanic{}
	}
	writeJSON(w, http.StatusOK, mechanics)
}

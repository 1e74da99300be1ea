package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/melville-ops/melville/internal/convo"
	"github.com/melville-ops/melville/internal/events"
	"github.com/melville-ops/melville/internal/store"
	"github.com/melville-ops/melville/internal/view"
)

// Records is the store surface the API consumes, split out so handler tests
// can run against a fake instead of Postgres.
type Records interface {
	ListFindings(ctx context.Context) ([]store.Finding, error)
	SetFindingStatus(ctx context.Context, id int64, status string) error
	CreateFinding(ctx context.Context, summary, details string) (int64, error)
	ConvertFindingToTask(ctx context.Context, findingID int64, t store.NewTask) (int64, error)
	ListMaintenanceTasks(ctx context.Context, filter store.TaskFilter) ([]store.MaintenanceTask, error)
	CompleteMaintenanceTask(ctx context.Context, id int64, notes string) error
	CreateMaintenanceTask(ctx context.Context, t store.NewTask) (int64, error)
	ListMechanics(ctx context.Context) ([]store.Mechanic, error)
}

type Server struct {
	router  *chi.Mux
	httpSrv *http.Server
	engine  *convo.Engine
	views   *view.Router
	records Records
	bus     *events.Publisher
	logger  *slog.Logger
}

func NewServer(port int, engine *convo.Engine, views *view.Router, records Records, bus *events.Publisher, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:  router,
		httpSrv: &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: router},
		engine:  engine,
		views:   views,
		records: records,
		bus:     bus,
		logger:  logger,
	}

	router.Get("/health", s.health)

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/query", s.query)
		r.Get("/session", s.session)
		r.Post("/view", s.setView)
		r.Post("/view/close", s.closeView)
		r.Post("/quick-action", s.quickAction)

		r.Get("/findings", s.listFindings)
		r.Post("/findings", s.createFinding)
		r.Post("/findings/{id}/ignore", s.ignoreFinding)
		r.Post("/findings/{id}/task", s.convertFinding)

		r.Get("/maintenance", s.listMaintenance)
		r.Post("/maintenance", s.createMaintenance)
		r.Post("/maintenance/{id}/complete", s.completeMaintenance)

		r.Get("/mechanics", s.listMechanics)
	})

	return s
}

func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.httpSrv.Addr)
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	body := map[string]string{"error": msg}
	if details != "" {
		body["details"] = details
	}
	writeJSON(w, status, body)
}

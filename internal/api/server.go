// Package api serves the pitch review workflow over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/docs"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/reconcile"
	"github.com/sells-group/outreach-cli/internal/workflow"
	"github.com/sells-group/outreach-cli/pkg/airtable"
	"github.com/sells-group/outreach-cli/pkg/clickup"
	"github.com/sells-group/outreach-cli/pkg/slack"
)

// Server exposes record review and task approval endpoints.
type Server struct {
	records   airtable.Client
	tracker   clickup.Client
	notifier  slack.Notifier
	extractor docs.Extractor
	runner    *workflow.Runner
	router    chi.Router
}

// NewServer builds the review API around the given collaborators.
func NewServer(records airtable.Client, tracker clickup.Client, notifier slack.Notifier, extractor docs.Extractor, runner *workflow.Runner) *Server {
	s := &Server{
		records:   records,
		tracker:   tracker,
		notifier:  notifier,
		extractor: extractor,
		runner:    runner,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/records", s.handleListRecords)
		r.Patch("/records/{id}/prompt", s.handleUpdatePrompt)
		r.Post("/records/{id}/rerun", s.handleRerunRecord)
		r.Post("/tasks/{id}/approve", s.handleApproveTask)
		r.Post("/tasks/{id}/review", s.handleFlagTask)
	})
	s.router = r

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe runs the server until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("review api listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListRecords returns lead records, optionally filtered by tracker task
// and processing status.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	var clauses []string
	if taskID := r.URL.Query().Get("taskId"); taskID != "" {
		clauses = append(clauses, formulaEq(model.FieldTaskID, taskID))
	}
	if status := r.URL.Query().Get("status"); status != "" {
		clauses = append(clauses, formulaEq(model.FieldStatus, status))
	}

	records, err := s.records.QueryRecords(r.Context(), combineFormula(clauses))
	if err != nil {
		writeError(w, http.StatusBadGateway, "query records", err)
		return
	}

	leads := make([]model.Lead, len(records))
	for i, rec := range records {
		leads[i] = model.LeadFromFields(rec.ID, rec.Fields)
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": leads})
}

type promptUpdate struct {
	Stage  string `json:"stage"`
	Prompt string `json:"prompt"`
}

// handleUpdatePrompt saves an edited prompt for one pitch stage. Only the
// prompt field changes; the generated text stays until the next rerun.
func (s *Server) handleUpdatePrompt(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "id")

	var req promptUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "decode body", err)
		return
	}
	stage, ok := model.ParseStage(req.Stage)
	if !ok {
		writeError(w, http.StatusBadRequest, "parse stage", fmt.Errorf("unknown stage %q", req.Stage))
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "validate prompt", errors.New("prompt must not be empty"))
		return
	}

	_, err := s.records.UpdateRecords(r.Context(), []airtable.RecordUpdate{
		{ID: recordID, Fields: map[string]any{stage.PromptField(): req.Prompt}},
	})
	if err != nil {
		if errors.Is(err, airtable.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "record", err)
			return
		}
		writeError(w, http.StatusBadGateway, "update record", err)
		return
	}

	zap.L().Info("prompt updated", zap.String("record", recordID), zap.String("stage", stage.String()))
	writeJSON(w, http.StatusOK, map[string]string{"record": recordID, "stage": stage.String()})
}

// handleRerunRecord regenerates the three pitch fragments for one record
// using its saved prompts, then persists the fresh drafts.
func (s *Server) handleRerunRecord(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "id")

	result, err := s.runner.RerunOne(r.Context(), s.records, s.extractor, recordID)
	if err != nil {
		if errors.Is(err, airtable.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "record", err)
			return
		}
		writeError(w, http.StatusBadGateway, "rerun record", err)
		return
	}
	if result.Failed() {
		writeError(w, http.StatusBadGateway, "rerun record", errors.New("generation failed"))
		return
	}

	if _, err := reconcile.Persist(r.Context(), s.records, []airtable.RecordUpdate{
		{ID: recordID, Fields: result.UpdateFields()},
	}); err != nil {
		writeError(w, http.StatusBadGateway, "persist record", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleApproveTask moves a task to client review and pings the client channel.
func (s *Server) handleApproveTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	task, err := s.tracker.GetTask(r.Context(), taskID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "fetch task", err)
		return
	}
	if err := s.tracker.UpdateTaskStatus(r.Context(), taskID, clickup.StatusClientReview); err != nil {
		writeError(w, http.StatusBadGateway, "update task status", err)
		return
	}

	msg := slack.Message{
		Text: fmt.Sprintf("Pitch drafts for *%s* are ready for client review: %s", task.Name, task.URL),
	}
	if err := s.notifier.Send(r.Context(), msg); err != nil {
		zap.L().Warn("slack notification failed", zap.String("task", taskID), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]string{"task": taskID, "status": clickup.StatusClientReview})
}

// handleFlagTask flags a task for manual review.
func (s *Server) handleFlagTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	if err := s.tracker.UpdateTaskStatus(r.Context(), taskID, clickup.StatusReviewManually); err != nil {
		writeError(w, http.StatusBadGateway, "update task status", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"task": taskID, "status": clickup.StatusReviewManually})
}

// formulaEq builds a record-store filter clause comparing a field to a value.
func formulaEq(field, value string) string {
	return fmt.Sprintf("{%s} = %q", field, value)
}

func combineFormula(clauses []string) string {
	switch len(clauses) {
	case 0:
		return ""
	case 1:
		return clauses[0]
	default:
		return "AND(" + strings.Join(clauses, ", ") + ")"
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, op string, err error) {
	zap.L().Error("request failed", zap.String("op", op), zap.Error(err))
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf("%s: %v", op, err)})
}

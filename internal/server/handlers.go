package server

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/alphalat/alphalat/internal/blob"
	"github.com/alphalat/alphalat/internal/export"
	"github.com/alphalat/alphalat/internal/lateral"
	"github.com/alphalat/alphalat/internal/store"
)

type HealthResponse struct {
	Status        string `json:"status"`
	DatasetsCount int    `json:"datasets_count"`
	RunsCount     int    `json:"runs_count"`
	DBSizeBytes   int64  `json:"db_size_bytes"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	datasets, err := s.store.ListDatasets(ctx)
	if err != nil {
		s.logger.Error("health: list datasets", zap.Error(err))
		s.renderError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	runs, err := s.store.ListRuns(ctx, 0)
	if err != nil {
		s.logger.Error("health: list runs", zap.Error(err))
		s.renderError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Database size is only known for SQL-backed stores
	var dbSize int64
	if db, ok := s.store.(interface{ DB() *sql.DB }); ok {
		row := db.DB().QueryRowContext(ctx, "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
		if err := row.Scan(&dbSize); err != nil {
			s.logger.Debug("health: db size unavailable", zap.Error(err))
		}
	}

	render.JSON(w, r, HealthResponse{
		Status:        "ok",
		DatasetsCount: len(datasets),
		RunsCount:     len(runs),
		DBSizeBytes:   dbSize,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}

type datasetResponse struct {
	*store.Dataset
	LatestRunID string `json:"latest_run_id,omitempty"`
}

func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	datasets, err := s.store.ListDatasets(ctx)
	if err != nil {
		s.logger.Error("list datasets", zap.Error(err))
		s.renderError(w, r, http.StatusInternalServerError, "Failed to load datasets")
		return
	}

	// Return empty array instead of null
	response := make([]datasetResponse, 0, len(datasets))
	for _, d := range datasets {
		item := datasetResponse{Dataset: d}
		run, err := s.store.LatestRun(ctx, d.ID)
		switch {
		case err == nil:
			item.LatestRunID = run.ID
		case !errors.Is(err, store.ErrNotFound):
			s.logger.Error("latest run", zap.Int64("dataset_id", d.ID), zap.Error(err))
			s.renderError(w, r, http.StatusInternalServerError, "Failed to load runs")
			return
		}
		response = append(response, item)
	}

	render.JSON(w, r, map[string]interface{}{"datasets": response})
}

type runSummary struct {
	ID         string    `json:"id"`
	DatasetID  int64     `json:"dataset_id"`
	Subject    string    `json:"subject"`
	Task       string    `json:"task"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	var datasetID int64
	if v := r.URL.Query().Get("dataset"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			s.renderError(w, r, http.StatusBadRequest, "dataset must be a positive integer")
			return
		}
		datasetID = id
	}

	runs, err := s.store.ListRuns(r.Context(), datasetID)
	if err != nil {
		s.logger.Error("list runs", zap.Error(err))
		s.renderError(w, r, http.StatusInternalServerError, "Failed to load runs")
		return
	}

	response := make([]runSummary, len(runs))
	for i, run := range runs {
		response[i] = runSummary{
			ID:         run.ID,
			DatasetID:  run.DatasetID,
			Subject:    run.Subject,
			Task:       string(run.Task),
			StartedAt:  run.StartedAt,
			FinishedAt: run.FinishedAt,
		}
	}

	render.JSON(w, r, map[string]interface{}{"runs": response})
}

type runResponse struct {
	*store.Run
	Lateralization []lateral.Index   `json:"lateralization"`
	Summary        *lateral.Summary `json:"summary,omitempty"`
}

// loadRun fetches the run named in the URL, writing the error response itself.
func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*store.Run, bool) {
	id := chi.URLParam(r, "id")
	run, err := s.store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.renderError(w, r, http.StatusNotFound, "Run not found")
		return nil, false
	}
	if err != nil {
		s.logger.Error("get run", zap.String("run_id", id), zap.Error(err))
		s.renderError(w, r, http.StatusInternalServerError, "Failed to load run")
		return nil, false
	}
	return run, true
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	indices := run.Table().LateralizationIndex()
	response := runResponse{Run: run, Lateralization: indices}
	if summary, err := lateral.Summarize(indices); err == nil {
		response.Summary = &summary
	}
	render.JSON(w, r, response)
}

func (s *Server) handleRunExport(w http.ResponseWriter, r *http.Request) {
	format := export.FormatCSV
	if v := r.URL.Query().Get("format"); v != "" {
		f, err := export.ParseFormat(v)
		if err != nil {
			s.renderError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		format = f
	}

	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	filename := path.Base(blob.DerivativeKey(run.Subject, run.Task, string(format)))
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	meta := export.Meta{Subject: run.Subject, Task: string(run.Task), RunID: run.ID}
	if err := export.Write(w, format, meta, run.Table()); err != nil {
		s.logger.Error("export run", zap.String("run_id", run.ID), zap.Error(err))
	}
}

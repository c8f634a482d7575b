package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/user/profile-scraper/internal/delivery/http/request"
	"github.com/user/profile-scraper/internal/delivery/http/response"
	"github.com/user/profile-scraper/internal/entity"
	"github.com/user/profile-scraper/internal/repository"
	"github.com/user/profile-scraper/internal/usecase"
)

type Handler struct {
	status usecase.StatusReader
	runner usecase.Runner
	// runCtx bounds runs started over HTTP; it outlives any single request.
	runCtx context.Context
	logger *zap.Logger
}

func NewHandler(runCtx context.Context, status usecase.StatusReader, runner usecase.Runner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		status: status,
		runner: runner,
		runCtx: runCtx,
		logger: logger,
	}
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.status.Health(r.Context())
	if err != nil {
		h.logger.Error("health check failed for store", zap.Error(err))
		h.writeJSON(w, http.StatusServiceUnavailable, response.HealthResponse{
			Status:  "unhealthy",
			Store:   "unhealthy",
			Running: h.runner.Running(),
		})
		return
	}
	h.writeJSON(w, http.StatusOK, response.HealthResponse{
		Status:   "ok",
		Store:    "healthy",
		Profiles: profiles,
		Running:  h.runner.Running(),
	})
}

func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		h.writeJSONError(w, "URL query parameter is required", http.StatusBadRequest)
		return
	}
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		h.writeJSONError(w, "Invalid URL format in query parameter", http.StatusBadRequest)
		return
	}

	rec, err := h.status.Profile(r.Context(), rawURL)
	if errors.Is(err, repository.ErrProfileNotFound) {
		h.writeJSONError(w, "Profile not found for the given URL", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("Failed to get profile", zap.String("url", rawURL), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) HandleListFailures(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	failures, err := h.status.Failures(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list failures", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, failures)
}

func (h *Handler) HandleStartRun(w http.ResponseWriter, r *http.Request) {
	var req request.StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	mode, err := entity.ParseMode(req.Mode)
	if err != nil {
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	runID, err := h.runner.Start(h.runCtx, mode)
	if errors.Is(err, usecase.ErrRunInProgress) {
		h.writeJSONError(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		h.logger.Error("Failed to start run", zap.String("mode", string(mode)), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusAccepted, response.StartRunResponse{
		Status:  "success",
		Message: "Run started in " + string(mode) + " mode",
		RunID:   runID,
	})
}

func (h *Handler) HandleLastRun(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.runner.LastReport()
	if !ok {
		h.writeJSONError(w, "No run has finished yet", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}

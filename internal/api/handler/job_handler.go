package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cuongbtq/scout-jobs/internal/api/dto"
	"github.com/cuongbtq/scout-jobs/internal/jobs"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const statusQueued = "queued"

// SubmitRefresh handles POST /api/v1/admin/refresh-market-values
// Queues a market value refresh for the given players, or all players when none are given
func (h *JobHandler) SubmitRefresh(c *gin.Context) {
	var req dto.SubmitRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	job, err := h.jobs.SubmitRefresh(c.Request.Context(), req.PlayerIDs)
	if err != nil {
		h.writeError(c, "Failed to submit market refresh", err)
		return
	}

	h.onSubmit(job.Kind)
	h.logger.Info("Market refresh queued",
		slog.String("job_id", job.ID),
		slog.Int64("total", job.Total),
	)

	c.JSON(http.StatusAccepted, dto.SubmitResponse{JobID: job.ID, Status: statusQueued})
}

// SubmitScout handles POST /api/v1/players/:player_id/scout
// Queues generation of a scouting report for one player
func (h *JobHandler) SubmitScout(c *gin.Context) {
	playerID, err := strconv.ParseInt(c.Param("player_id"), 10, 64)
	if err != nil || playerID <= 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "player_id must be a positive integer"})
		return
	}

	job, err := h.jobs.SubmitScout(c.Request.Context(), playerID)
	if err != nil {
		h.writeError(c, "Failed to submit scouting report", err)
		return
	}

	h.onSubmit(job.Kind)
	h.logger.Info("Scouting report queued",
		slog.String("job_id", job.ID),
		slog.Int64("player_id", playerID),
	)

	c.JSON(http.StatusAccepted, dto.SubmitResponse{JobID: job.ID, Status: statusQueued})
}

// SubmitAnalytics handles POST /api/v1/admin/analytics-batch
// Queues insight caching for the given players
func (h *JobHandler) SubmitAnalytics(c *gin.Context) {
	var req dto.SubmitAnalyticsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	job, err := h.jobs.SubmitAnalytics(c.Request.Context(), req.PlayerIDs)
	if err != nil {
		h.writeError(c, "Failed to submit analytics batch", err)
		return
	}

	h.onSubmit(job.Kind)
	h.logger.Info("Analytics batch queued",
		slog.String("job_id", job.ID),
		slog.Int64("total", job.Total),
	)

	c.JSON(http.StatusAccepted, dto.SubmitResponse{JobID: job.ID, Status: statusQueued})
}

// GetJob handles GET /api/v1/jobs/:job_id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	if _, err := uuid.Parse(jobID); err != nil {
		h.logger.Error("Invalid job_id format", slog.String("job_id", jobID), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "job_id must be a valid UUID"})
		return
	}

	job, err := h.jobs.Status(c.Request.Context(), jobID)
	if err != nil {
		h.writeError(c, "Failed to get job", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewJobDTO(job))
}

func (h *JobHandler) writeError(c *gin.Context, msg string, err error) {
	if errors.Is(err, jobs.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Job not found"})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, jobs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, jobs.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, jobs.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}

	h.logger.Error(msg,
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
	c.JSON(status, dto.ErrorResponse{Error: msg + ": " + err.Error()})
}

package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"curatorhub/internal/model"
	"curatorhub/internal/priority"
	"curatorhub/internal/service/dashboard"
)

type DashboardService interface {
	TopPriorities(ctx context.Context, userID int) ([]priority.UrgencyResult, error)
	DailySchedule(ctx context.Context, userID int, day time.Time, source string) (*priority.DailySchedule, error)
	SuggestTime(ctx context.Context, userID, taskID int, hour *int) (*priority.TimeSuggestion, error)
	Stats(ctx context.Context, userID int) (*model.DashboardStats, error)
}

type DashboardHandler struct {
	svc    DashboardService
	logger *zap.Logger
}

func NewDashboardHandler(svc DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{svc: svc, logger: logger}
}

// Priorities handles GET /dashboard/priorities
func (h *DashboardHandler) Priorities(c *gin.Context) {
	userID, _ := currentUser(c)

	results, err := h.svc.TopPriorities(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, "Priorities", err)
		return
	}
	ok(c, http.StatusOK, results)
}

// Schedule handles GET /dashboard/schedule?date=YYYY-MM-DD
func (h *DashboardHandler) Schedule(c *gin.Context) {
	userID, _ := currentUser(c)

	// A zero day lets the service use its own clock for today.
	var day time.Time
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			fail(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	schedule, err := h.svc.DailySchedule(c.Request.Context(), userID, day, dashboard.SourceRequest)
	if err != nil {
		writeError(c, h.logger, "Schedule", err)
		return
	}
	ok(c, http.StatusOK, schedule)
}

// Stats handles GET /dashboard/stats
func (h *DashboardHandler) Stats(c *gin.Context) {
	userID, _ := currentUser(c)

	stats, err := h.svc.Stats(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, "Stats", err)
		return
	}
	ok(c, http.StatusOK, stats)
}

// SuggestTime handles GET /tasks/:id/suggest-time?hour=H
func (h *DashboardHandler) SuggestTime(c *gin.Context) {
	userID, _ := currentUser(c)
	taskID, valid := paramID(c, "id")
	if !valid {
		return
	}

	var hour *int
	if raw := c.Query("hour"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, "hour must be an integer")
			return
		}
		hour = &v
	}

	suggestion, err := h.svc.SuggestTime(c.Request.Context(), userID, taskID, hour)
	if err != nil {
		writeError(c, h.logger, "SuggestTime", err)
		return
	}
	ok(c, http.StatusOK, suggestion)
}

package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"curatorhub/internal/ai"
	"curatorhub/internal/repository"
	"curatorhub/internal/service/auth"
	"curatorhub/internal/service/content"
	"curatorhub/internal/service/dashboard"
	"curatorhub/internal/service/task"
	"curatorhub/pkg/logger"
	"curatorhub/pkg/outbox"
	"curatorhub/pkg/rbac"
)

// Context keys set by the auth middleware.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

const dateLayout = "2006-01-02"

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

// statusFor maps service errors onto HTTP statuses. Unknown errors are 500.
func statusFor(err error) (int, string) {
	var denied *rbac.PermissionDeniedError
	switch {
	case errors.As(err, &denied):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, outbox.ErrEventNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, task.ErrInvalidInput), errors.Is(err, task.ErrInvalidStatus),
		errors.Is(err, auth.ErrInvalidInput), errors.Is(err, content.ErrInvalidInput),
		errors.Is(err, dashboard.ErrInvalidHour):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, auth.ErrEmailExists), errors.Is(err, content.ErrDuplicateRequest),
		errors.Is(err, task.ErrDependencyCycle), errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, ai.ErrProviderUnavailable):
		return http.StatusBadGateway, ai.ErrProviderUnavailable.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeError(c *gin.Context, log *zap.Logger, op string, err error) {
	status, msg := statusFor(err)
	l := logger.WithTrace(c.Request.Context(), log)
	if status >= http.StatusInternalServerError {
		l.Error(op+" failed", zap.Error(err))
	} else {
		l.Warn(op+" rejected", zap.Int("status", status), zap.Error(err))
	}
	fail(c, status, msg)
}

// currentUser returns the authenticated caller. The auth middleware
// guarantees both values on protected routes.
func currentUser(c *gin.Context) (int, string) {
	return c.GetInt(CtxUserID), c.GetString(CtxRole)
}

func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// parseDate reads an optional YYYY-MM-DD value as a UTC date.
func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

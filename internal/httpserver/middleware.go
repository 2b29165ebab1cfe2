package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"curatorhub/internal/handler"
	"curatorhub/pkg/logger"
	"curatorhub/pkg/metrics"
	"curatorhub/pkg/rbac"
	"curatorhub/pkg/trace"
	"curatorhub/pkg/util"
)

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}

// AuthMiddleware accepts "Authorization: Bearer <jwt>" and, for EventSource
// clients that cannot set headers, a ?token= query parameter.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.ExtractBearer(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			abort(c, http.StatusUnauthorized, "missing token")
			return
		}

		claims, err := util.ParseJWT(token, jwtSecret)
		if err != nil || !rbac.ValidRole(claims.Role) {
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}

		// store user_id and role in context so handlers can use them
		c.Set(handler.CtxUserID, claims.UserID)
		c.Set(handler.CtxRole, claims.Role)

		c.Next()
	}
}

// RequirePermission 中间件：要求用户具有指定权限
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get(handler.CtxUserID)
		if !exists {
			abort(c, http.StatusUnauthorized, "user not authenticated")
			return
		}

		uid, ok := userID.(int)
		if !ok {
			abort(c, http.StatusInternalServerError, "invalid user_id")
			return
		}

		if err := rbac.CheckPermission(uid, c.GetString(handler.CtxRole), permission); err != nil {
			abort(c, http.StatusForbidden, err.Error())
			return
		}

		c.Next()
	}
}

// TraceMiddleware reuses an inbound X-Trace-ID or mints one, and echoes it
// on the response.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if id := c.GetHeader(trace.HeaderName); id != "" {
			ctx = trace.WithContext(ctx, id)
		}
		ctx, id := trace.Ensure(ctx)

		c.Request = c.Request.WithContext(ctx)
		c.Set(trace.TraceIDKey, id)
		c.Header(trace.HeaderName, id)

		c.Next()
	}
}

// RequestLogger logs one line per request and records its latency.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.RecordHTTPRequestDuration(c.Request.Method, route, strconv.Itoa(status), duration)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", duration),
			zap.String("client_ip", c.ClientIP()),
		}
		l := logger.WithTrace(c.Request.Context(), log)
		switch {
		case status >= http.StatusInternalServerError:
			l.Error("HTTP request", fields...)
		case status >= http.StatusBadRequest:
			l.Warn("HTTP request", fields...)
		default:
			l.Debug("HTTP request", fields...)
		}
	}
}

package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"curatorhub/internal/handler"
	"curatorhub/pkg/otel"
	"curatorhub/pkg/rbac"
)

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type Handlers struct {
	Auth      *handler.AuthHandler
	Dashboard *handler.DashboardHandler
	Task      *handler.TaskHandler
	Content   *handler.ContentHandler
	Admin     *handler.AdminHandler
	Events    *handler.EventsHandler
}

type Options struct {
	JWTSecret   string
	CORSOrigins []string
	Ready       []ReadyCheck
	Logger      *zap.Logger
}

type Router struct {
	Engine *gin.Engine
	cors   *cors.Cors
}

func NewRouter(h Handlers, opts Options) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), otel.GinMiddleware(), RequestLogger(opts.Logger))

	// Health endpoints (放在最前面)
	health := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }
	r.GET("/health", health)
	r.HEAD("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/healthz", health)
	r.HEAD("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		for _, check := range opts.Ready {
			if err := check.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": check.Name + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/register", h.Auth.Register)
	r.POST("/login", h.Auth.Login)

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(opts.JWTSecret))
	auth.GET("/me", h.Auth.Me)

	read := auth.Group("/", RequirePermission(rbac.PermissionReadDashboard))
	{
		read.GET("/dashboard/priorities", h.Dashboard.Priorities)
		read.GET("/dashboard/schedule", h.Dashboard.Schedule)
		read.GET("/dashboard/stats", h.Dashboard.Stats)
		read.GET("/tasks", h.Task.ListTasks)
		read.GET("/tasks/:id/suggest-time", h.Dashboard.SuggestTime)
		read.GET("/projects", h.Task.ListProjects)
		read.GET("/events", h.Events.Stream)
	}

	tasks := auth.Group("/tasks", RequirePermission(rbac.PermissionWriteTask))
	{
		tasks.POST("", h.Task.CreateTask)
		tasks.PUT("/:id", h.Task.UpdateTask)
		tasks.PATCH("/:id/status", h.Task.SetTaskStatus)
		tasks.DELETE("/:id", h.Task.DeleteTask)
		tasks.POST("/:id/dependencies", h.Task.AddDependency)
	}

	projects := auth.Group("/projects", RequirePermission(rbac.PermissionWriteProject))
	{
		projects.POST("", h.Task.CreateProject)
		projects.PATCH("/:id/status", h.Task.SetProjectStatus)
	}

	// content service re-checks the permission for direct callers
	content := auth.Group("/content", RequirePermission(rbac.PermissionGenerateContent))
	{
		content.POST("/draft", h.Content.Draft)
		content.POST("/image", h.Content.Image)
		content.GET("", h.Content.List)
		content.GET("/:id", h.Content.Get)
	}

	admin := auth.Group("/admin", RequirePermission(rbac.PermissionAdminOutbox))
	{
		admin.POST("/outbox/replay", h.Admin.ReplayOutboxEvent)
		admin.POST("/outbox/replay-failed", h.Admin.ReplayFailedEvents)
	}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key", "X-Trace-ID"},
		ExposedHeaders:   []string{"X-Trace-ID"},
		AllowCredentials: true,
	})

	return &Router{Engine: r, cors: c}
}

// Handler returns the engine wrapped with CORS handling.
func (r *Router) Handler() http.Handler {
	return r.cors.Handler(r.Engine)
}

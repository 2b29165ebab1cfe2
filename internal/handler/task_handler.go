package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"curatorhub/internal/model"
	"curatorhub/internal/service/task"
)

type TaskService interface {
	Create(ctx context.Context, userID int, in task.Input) (*model.Task, error)
	Update(ctx context.Context, userID, id int, in task.Input) (*model.Task, error)
	SetStatus(ctx context.Context, userID, id int, status model.Status) (*model.Task, error)
	Delete(ctx context.Context, userID, id int) error
	List(ctx context.Context, userID int) ([]model.Task, error)
	AddDependency(ctx context.Context, userID, taskID, dependsOn int) error

	CreateProject(ctx context.Context, userID int, in task.ProjectInput) (*model.Project, error)
	ListProjects(ctx context.Context, userID int) ([]model.Project, error)
	SetProjectStatus(ctx context.Context, userID, id int, status model.ProjectStatus) (*model.Project, error)
}

type TaskHandler struct {
	svc    TaskService
	logger *zap.Logger
}

func NewTaskHandler(svc TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{svc: svc, logger: logger}
}

type taskRequest struct {
	ProjectID      *int           `json:"project_id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Category       model.Category `json:"category"`
	Status         model.Status   `json:"status"`
	DueDate        *string        `json:"due_date"`
	EstimatedHours *float64       `json:"estimated_hours"`
}

func (r taskRequest) input() (task.Input, error) {
	due, err := parseDate(r.DueDate)
	if err != nil {
		return task.Input{}, err
	}
	return task.Input{
		ProjectID:      r.ProjectID,
		Title:          r.Title,
		Description:    r.Description,
		Category:       r.Category,
		Status:         r.Status,
		DueDate:        due,
		EstimatedHours: r.EstimatedHours,
	}, nil
}

func (h *TaskHandler) bindTask(c *gin.Context) (task.Input, bool) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return task.Input{}, false
	}
	in, err := req.input()
	if err != nil {
		fail(c, http.StatusBadRequest, "due_date must be YYYY-MM-DD")
		return task.Input{}, false
	}
	return in, true
}

// ListTasks handles GET /tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, _ := currentUser(c)

	tasks, err := h.svc.List(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, "ListTasks", err)
		return
	}
	ok(c, http.StatusOK, tasks)
}

// CreateTask handles POST /tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, _ := currentUser(c)
	in, valid := h.bindTask(c)
	if !valid {
		return
	}

	t, err := h.svc.Create(c.Request.Context(), userID, in)
	if err != nil {
		writeError(c, h.logger, "CreateTask", err)
		return
	}
	ok(c, http.StatusCreated, t)
}

// UpdateTask handles PUT /tasks/:id
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, _ := currentUser(c)
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	in, valid := h.bindTask(c)
	if !valid {
		return
	}

	t, err := h.svc.Update(c.Request.Context(), userID, id, in)
	if err != nil {
		writeError(c, h.logger, "UpdateTask", err)
		return
	}
	ok(c, http.StatusOK, t)
}

// SetTaskStatus handles PATCH /tasks/:id/status
func (h *TaskHandler) SetTaskStatus(c *gin.Context) {
	userID, _ := currentUser(c)
	id, valid := paramID(c, "id")
	if !valid {
		return
	}

	var req struct {
		Status model.Status `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "status is required")
		return
	}

	t, err := h.svc.SetStatus(c.Request.Context(), userID, id, req.Status)
	if err != nil {
		writeError(c, h.logger, "SetTaskStatus", err)
		return
	}
	ok(c, http.StatusOK, t)
}

// DeleteTask handles DELETE /tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, _ := currentUser(c)
	id, valid := paramID(c, "id")
	if !valid {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), userID, id); err != nil {
		writeError(c, h.logger, "DeleteTask", err)
		return
	}
	ok(c, http.StatusOK, gin.H{"deleted": id})
}

// AddDependency handles POST /tasks/:id/dependencies
func (h *TaskHandler) AddDependency(c *gin.Context) {
	userID, _ := currentUser(c)
	id, valid := paramID(c, "id")
	if !valid {
		return
	}

	var req struct {
		DependsOnTaskID int `json:"depends_on_task_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "depends_on_task_id is required")
		return
	}

	if err := h.svc.AddDependency(c.Request.Context(), userID, id, req.DependsOnTaskID); err != nil {
		writeError(c, h.logger, "AddDependency", err)
		return
	}
	ok(c, http.StatusCreated, model.TaskDependency{TaskID: id, DependsOnTaskID: req.DependsOnTaskID})
}

// ListProjects handles GET /projects
func (h *TaskHandler) ListProjects(c *gin.Context) {
	userID, _ := currentUser(c)

	projects, err := h.svc.ListProjects(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, "ListProjects", err)
		return
	}
	ok(c, http.StatusOK, projects)
}

// CreateProject handles POST /projects
func (h *TaskHandler) CreateProject(c *gin.Context) {
	userID, _ := currentUser(c)

	var req struct {
		Title       string              `json:"title"`
		Description string              `json:"description"`
		Category    model.Category      `json:"category"`
		StartDate   *string             `json:"start_date"`
		TargetDate  *string             `json:"target_date"`
		Status      model.ProjectStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		fail(c, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		return
	}
	target, err := parseDate(req.TargetDate)
	if err != nil {
		fail(c, http.StatusBadRequest, "target_date must be YYYY-MM-DD")
		return
	}

	p, err := h.svc.CreateProject(c.Request.Context(), userID, task.ProjectInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		StartDate:   start,
		TargetDate:  target,
		Status:      req.Status,
	})
	if err != nil {
		writeError(c, h.logger, "CreateProject", err)
		return
	}
	ok(c, http.StatusCreated, p)
}

// SetProjectStatus handles PATCH /projects/:id/status
func (h *TaskHandler) SetProjectStatus(c *gin.Context) {
	userID, _ := currentUser(c)
	id, valid := paramID(c, "id")
	if !valid {
		return
	}

	var req struct {
		Status model.ProjectStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "status is required")
		return
	}

	p, err := h.svc.SetProjectStatus(c.Request.Context(), userID, id, req.Status)
	if err != nil {
		writeError(c, h.logger, "SetProjectStatus", err)
		return
	}
	ok(c, http.StatusOK, p)
}

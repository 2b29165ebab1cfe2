package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"curatorhub/internal/ai"
	"curatorhub/internal/model"
	"curatorhub/internal/service/content"
)

// IdempotencyHeader lets clients retry generation requests safely.
const IdempotencyHeader = "Idempotency-Key"

type ContentService interface {
	Draft(ctx context.Context, caller content.Caller, req content.DraftRequest) (*model.ContentDraft, error)
	Image(ctx context.Context, caller content.Caller, req content.ImageRequest) (*model.ContentDraft, error)
	List(ctx context.Context, userID, limit int) ([]model.ContentDraft, error)
	Get(ctx context.Context, userID int, id uuid.UUID) (*model.ContentDraft, error)
}

type ContentHandler struct {
	svc    ContentService
	logger *zap.Logger
}

func NewContentHandler(svc ContentService, logger *zap.Logger) *ContentHandler {
	return &ContentHandler{svc: svc, logger: logger}
}

type promptRequest struct {
	TaskID      *int     `json:"task_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Audience    string   `json:"audience"`
	Tone        string   `json:"tone"`
	Keywords    []string `json:"keywords"`
	MaxWords    int      `json:"max_words"`
}

func (r promptRequest) input() ai.PromptInput {
	return ai.PromptInput{
		Title:       r.Title,
		Description: r.Description,
		Audience:    r.Audience,
		Tone:        r.Tone,
		Keywords:    r.Keywords,
		MaxWords:    r.MaxWords,
	}
}

func caller(c *gin.Context) content.Caller {
	userID, role := currentUser(c)
	return content.Caller{UserID: userID, Role: role}
}

// Draft handles POST /content/draft
func (h *ContentHandler) Draft(c *gin.Context) {
	var req struct {
		promptRequest
		Kind model.ContentKind `json:"kind" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "kind is required")
		return
	}

	draft, err := h.svc.Draft(c.Request.Context(), caller(c), content.DraftRequest{
		Kind:           req.Kind,
		TaskID:         req.TaskID,
		Input:          req.input(),
		IdempotencyKey: c.GetHeader(IdempotencyHeader),
	})
	if err != nil {
		writeError(c, h.logger, "Draft", err)
		return
	}
	ok(c, http.StatusCreated, draft)
}

// Image handles POST /content/image
func (h *ContentHandler) Image(c *gin.Context) {
	var req struct {
		promptRequest
		Size string `json:"size"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	draft, err := h.svc.Image(c.Request.Context(), caller(c), content.ImageRequest{
		TaskID:         req.TaskID,
		Input:          req.input(),
		Size:           req.Size,
		IdempotencyKey: c.GetHeader(IdempotencyHeader),
	})
	if err != nil {
		writeError(c, h.logger, "Image", err)
		return
	}
	ok(c, http.StatusCreated, draft)
}

// List handles GET /content?limit=N
func (h *ContentHandler) List(c *gin.Context) {
	userID, _ := currentUser(c)

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(content.DefaultListLimit)))
	if err != nil {
		fail(c, http.StatusBadRequest, "limit must be an integer")
		return
	}

	drafts, err := h.svc.List(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, h.logger, "ListContent", err)
		return
	}
	ok(c, http.StatusOK, drafts)
}

// Get handles GET /content/:id
func (h *ContentHandler) Get(c *gin.Context) {
	userID, _ := currentUser(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid id")
		return
	}

	draft, err := h.svc.Get(c.Request.Context(), userID, id)
	if err != nil {
		writeError(c, h.logger, "GetContent", err)
		return
	}
	ok(c, http.StatusOK, draft)
}

package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"curatorhub/internal/ai"
	"curatorhub/internal/model"
	"curatorhub/pkg/metrics"
	"curatorhub/pkg/rbac"
)

var (
	ErrDuplicateRequest = errors.New("duplicate request")
	ErrInvalidInput     = errors.New("invalid input")
)

const (
	dedupHandler = "content"

	DefaultListLimit = 50
	maxListLimit     = 200
)

var imageSizes = map[string]bool{
	"":          true,
	"256x256":   true,
	"512x512":   true,
	"1024x1024": true,
	"1792x1024": true,
	"1024x1792": true,
}

type Generator interface {
	GenerateText(ctx context.Context, req ai.TextRequest) (*ai.TextResult, error)
	GenerateImage(ctx context.Context, req ai.ImageRequest) (*ai.ImageResult, error)
}

type Store interface {
	Insert(ctx context.Context, d *model.ContentDraft) error
	ListByUser(ctx context.Context, userID, limit int) ([]model.ContentDraft, error)
	Get(ctx context.Context, userID int, id uuid.UUID) (*model.ContentDraft, error)
}

type TaskLookup interface {
	Get(ctx context.Context, userID, id int) (*model.Task, error)
}

type Deduper interface {
	AcquireOnce(ctx context.Context, handler, id string) bool
	Release(ctx context.Context, handler, id string)
}

// Caller identifies who is asking, as taken from the access token.
type Caller struct {
	UserID int
	Role   string
}

type DraftRequest struct {
	Kind           model.ContentKind
	TaskID         *int
	Input          ai.PromptInput
	IdempotencyKey string
}

type ImageRequest struct {
	TaskID         *int
	Input          ai.PromptInput
	Size           string
	IdempotencyKey string
}

type Service struct {
	generator Generator
	store     Store
	tasks     TaskLookup
	deduper   Deduper
	logger    *zap.Logger
}

func NewService(generator Generator, store Store, tasks TaskLookup, deduper Deduper, logger *zap.Logger) *Service {
	return &Service{
		generator: generator,
		store:     store,
		tasks:     tasks,
		deduper:   deduper,
		logger:    logger,
	}
}

// Draft generates and stores a text draft.
func (s *Service) Draft(ctx context.Context, caller Caller, req DraftRequest) (*model.ContentDraft, error) {
	if err := rbac.CheckPermission(caller.UserID, caller.Role, rbac.PermissionGenerateContent); err != nil {
		return nil, err
	}
	if !req.Kind.Valid() || req.Kind == model.ContentImage {
		return nil, fmt.Errorf("%w: unsupported kind %q", ErrInvalidInput, req.Kind)
	}
	input, err := s.resolveInput(ctx, caller.UserID, req.TaskID, req.Input)
	if err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, caller.UserID, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	res, err := s.generator.GenerateText(ctx, ai.TextRequest{Kind: req.Kind, Input: input})
	if err != nil {
		release()
		return nil, err
	}

	draft := &model.ContentDraft{
		ID:       uuid.New(),
		UserID:   caller.UserID,
		TaskID:   req.TaskID,
		Kind:     req.Kind,
		Prompt:   res.Prompt,
		Body:     res.Text,
		Provider: res.Provider,
		Model:    res.Model,
		Fallback: res.Fallback,
	}
	if err := s.store.Insert(ctx, draft); err != nil {
		release()
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}

	metrics.IncrementContentGenerated(string(req.Kind), res.Fallback)
	return draft, nil
}

// Image generates and stores an image draft. Provider failures surface as
// ai.ErrProviderUnavailable.
func (s *Service) Image(ctx context.Context, caller Caller, req ImageRequest) (*model.ContentDraft, error) {
	if err := rbac.CheckPermission(caller.UserID, caller.Role, rbac.PermissionGenerateContent); err != nil {
		return nil, err
	}
	if !imageSizes[req.Size] {
		return nil, fmt.Errorf("%w: unsupported size %q", ErrInvalidInput, req.Size)
	}
	input, err := s.resolveInput(ctx, caller.UserID, req.TaskID, req.Input)
	if err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, caller.UserID, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	res, err := s.generator.GenerateImage(ctx, ai.ImageRequest{Input: input, Size: req.Size})
	if err != nil {
		release()
		return nil, err
	}

	draft := &model.ContentDraft{
		ID:       uuid.New(),
		UserID:   caller.UserID,
		TaskID:   req.TaskID,
		Kind:     model.ContentImage,
		Prompt:   res.Prompt,
		ImageURL: res.URL,
		Provider: res.Provider,
		Model:    res.Model,
	}
	if err := s.store.Insert(ctx, draft); err != nil {
		release()
		return nil, fmt.Errorf("failed to save image draft: %w", err)
	}

	metrics.IncrementContentGenerated(string(model.ContentImage), false)
	return draft, nil
}

func (s *Service) List(ctx context.Context, userID, limit int) ([]model.ContentDraft, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	drafts, err := s.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if drafts == nil {
		drafts = []model.ContentDraft{}
	}
	return drafts, nil
}

// Get returns one of the caller's drafts.
func (s *Service) Get(ctx context.Context, userID int, id uuid.UUID) (*model.ContentDraft, error) {
	return s.store.Get(ctx, userID, id)
}

// resolveInput fills an empty title and description from the linked task.
func (s *Service) resolveInput(ctx context.Context, userID int, taskID *int, in ai.PromptInput) (ai.PromptInput, error) {
	if taskID != nil {
		t, err := s.tasks.Get(ctx, userID, *taskID)
		if err != nil {
			return in, err
		}
		if strings.TrimSpace(in.Title) == "" {
			in.Title = t.Title
		}
		if strings.TrimSpace(in.Description) == "" {
			in.Description = t.Description
		}
	}
	if strings.TrimSpace(in.Title) == "" {
		return in, fmt.Errorf("%w: title or task_id is required", ErrInvalidInput)
	}
	return in, nil
}

// acquire claims the idempotency key. The returned func frees it again when
// the request fails, so the client may retry.
func (s *Service) acquire(ctx context.Context, userID int, key string) (func(), error) {
	key = strings.TrimSpace(key)
	if key == "" || s.deduper == nil {
		return func() {}, nil
	}

	id := fmt.Sprintf("%d:%s", userID, key)
	if !s.deduper.AcquireOnce(ctx, dedupHandler, id) {
		s.logger.Info("Duplicate content request", zap.Int("user_id", userID), zap.String("idempotency_key", key))
		return nil, ErrDuplicateRequest
	}
	return func() { s.deduper.Release(ctx, dedupHandler, id) }, nil
}

package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"curatorhub/internal/model"
	"curatorhub/internal/repository"
)

var (
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidInput    = errors.New("invalid input")
	ErrDependencyCycle = errors.New("dependency would create a cycle")
)

type Store interface {
	Insert(ctx context.Context, t *model.Task) error
	Get(ctx context.Context, userID, id int) (*model.Task, error)
	ListByUser(ctx context.Context, userID int) ([]model.Task, error)
	Update(ctx context.Context, t *model.Task) error
	UpdateStatusTx(ctx context.Context, userID, id int, status model.Status) (*model.Task, error)
	Delete(ctx context.Context, userID, id int) error
	InsertDependency(ctx context.Context, userID, taskID, dependsOn int) error
	ListDependencies(ctx context.Context, taskID int) ([]model.TaskDependency, error)
}

type ProjectStore interface {
	Insert(ctx context.Context, p *model.Project) error
	Get(ctx context.Context, userID, id int) (*model.Project, error)
	ListByUser(ctx context.Context, userID int) ([]model.Project, error)
	UpdateStatus(ctx context.Context, userID, id int, status model.ProjectStatus) error
}

// Input carries the editable fields of a task.
type Input struct {
	ProjectID      *int
	Title          string
	Description    string
	Category       model.Category
	Status         model.Status
	DueDate        *time.Time
	EstimatedHours *float64
}

// Service manages tasks and projects. Every task mutation lands in the
// outbox through the store.
type Service struct {
	tasks    Store
	projects ProjectStore
	logger   *zap.Logger
}

func NewService(tasks Store, projects ProjectStore, logger *zap.Logger) *Service {
	return &Service{tasks: tasks, projects: projects, logger: logger}
}

func (s *Service) validate(ctx context.Context, userID int, in *Input) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if !in.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, in.Category)
	}
	if in.EstimatedHours != nil && *in.EstimatedHours <= 0 {
		return fmt.Errorf("%w: estimated_hours must be positive", ErrInvalidInput)
	}
	if in.ProjectID != nil {
		if _, err := s.projects.Get(ctx, userID, *in.ProjectID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: project %d not found", ErrInvalidInput, *in.ProjectID)
			}
			return err
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, userID int, in Input) (*model.Task, error) {
	if in.Status == "" {
		in.Status = model.StatusPending
	}
	if !in.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, in.Status)
	}
	if err := s.validate(ctx, userID, &in); err != nil {
		return nil, err
	}

	t := &model.Task{
		UserID:         userID,
		ProjectID:      in.ProjectID,
		Title:          in.Title,
		Description:    in.Description,
		Category:       in.Category,
		Status:         in.Status,
		DueDate:        in.DueDate,
		EstimatedHours: in.EstimatedHours,
	}
	if err := s.tasks.Insert(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return t, nil
}

// Update replaces the editable fields of a task. Status is left untouched.
func (s *Service) Update(ctx context.Context, userID, id int, in Input) (*model.Task, error) {
	if err := s.validate(ctx, userID, &in); err != nil {
		return nil, err
	}

	t := &model.Task{
		ID:             id,
		UserID:         userID,
		ProjectID:      in.ProjectID,
		Title:          in.Title,
		Description:    in.Description,
		Category:       in.Category,
		DueDate:        in.DueDate,
		EstimatedHours: in.EstimatedHours,
	}
	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, err
	}
	return s.tasks.Get(ctx, userID, id)
}

func (s *Service) SetStatus(ctx context.Context, userID, id int, status model.Status) (*model.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.tasks.UpdateStatusTx(ctx, userID, id, status)
}

func (s *Service) Delete(ctx context.Context, userID, id int) error {
	return s.tasks.Delete(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID int) ([]model.Task, error) {
	tasks, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

// AddDependency records that taskID cannot finish before dependsOn. Both
// tasks must belong to the user and the edge must not close a cycle.
func (s *Service) AddDependency(ctx context.Context, userID, taskID, dependsOn int) error {
	if taskID == dependsOn {
		return fmt.Errorf("%w: a task cannot depend on itself", ErrInvalidInput)
	}
	for _, id := range []int{taskID, dependsOn} {
		if _, err := s.tasks.Get(ctx, userID, id); err != nil {
			return err
		}
	}

	reaches, err := s.reaches(ctx, dependsOn, taskID)
	if err != nil {
		return err
	}
	if reaches {
		return ErrDependencyCycle
	}

	if err := s.tasks.InsertDependency(ctx, userID, taskID, dependsOn); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil
		}
		return fmt.Errorf("failed to add dependency: %w", err)
	}
	return nil
}

// reaches walks the dependency edges from start and reports whether target
// is reachable.
func (s *Service) reaches(ctx context.Context, start, target int) (bool, error) {
	seen := map[int]bool{start: true}
	queue := []int{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		deps, err := s.tasks.ListDependencies(ctx, id)
		if err != nil {
			return false, err
		}
		for _, d := range deps {
			if d.DependsOnTaskID == target {
				return true, nil
			}
			if !seen[d.DependsOnTaskID] {
				seen[d.DependsOnTaskID] = true
				queue = append(queue, d.DependsOnTaskID)
			}
		}
	}
	return false, nil
}

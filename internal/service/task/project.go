package task

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"curatorhub/internal/model"
)

type ProjectInput struct {
	Title       string
	Description string
	Category    model.Category
	StartDate   *time.Time
	TargetDate  *time.Time
	Status      model.ProjectStatus
}

func (s *Service) CreateProject(ctx context.Context, userID int, in ProjectInput) (*model.Project, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.Category == "" {
		in.Category = model.CategoryExhibition
	}
	if !in.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, in.Category)
	}
	if in.Status == "" {
		in.Status = model.ProjectPlanning
	}
	if !in.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, in.Status)
	}
	if in.StartDate != nil && in.TargetDate != nil && in.TargetDate.Before(*in.StartDate) {
		return nil, fmt.Errorf("%w: target_date is before start_date", ErrInvalidInput)
	}

	p := &model.Project{
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		StartDate:   in.StartDate,
		TargetDate:  in.TargetDate,
		Status:      in.Status,
	}
	if err := s.projects.Insert(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return p, nil
}

func (s *Service) ListProjects(ctx context.Context, userID int) ([]model.Project, error) {
	projects, err := s.projects.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []model.Project{}
	}
	return projects, nil
}

func (s *Service) SetProjectStatus(ctx context.Context, userID, id int, status model.ProjectStatus) (*model.Project, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if err := s.projects.UpdateStatus(ctx, userID, id, status); err != nil {
		return nil, err
	}

	s.logger.Info("Project status changed", zap.Int("project_id", id), zap.String("status", string(status)))
	return s.projects.Get(ctx, userID, id)
}

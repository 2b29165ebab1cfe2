package model

import "time"

type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "planning"
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectArchived  ProjectStatus = "archived"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectActive, ProjectCompleted, ProjectArchived:
		return true
	}
	return false
}

type Project struct {
	ID             int           `json:"id"`
	UserID         int           `json:"user_id"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Category       Category      `json:"category"`
	StartDate      *time.Time    `json:"start_date,omitempty"`
	TargetDate     *time.Time    `json:"target_date,omitempty"`
	Status         ProjectStatus `json:"status"`
	TaskCount      int           `json:"task_count"`
	CompletedCount int           `json:"completed_count"`
	Progress       float64       `json:"progress"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

package model

import "time"

type Category string

const (
	CategoryExhibition  Category = "exhibition"
	CategoryEducation   Category = "education"
	CategoryCollection  Category = "collection"
	CategoryPublication Category = "publication"
	CategoryResearch    Category = "research"
	CategoryAdmin       Category = "admin"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryExhibition, CategoryEducation, CategoryCollection,
		CategoryPublication, CategoryResearch, CategoryAdmin:
		return true
	}
	return false
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusPaused     Status = "paused"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusPaused, StatusCancelled:
		return true
	}
	return false
}

// Eligible reports whether a task in this status takes part in scoring and scheduling.
func (s Status) Eligible() bool {
	return s == StatusPending || s == StatusInProgress
}

type Task struct {
	ID             int        `json:"id"`
	UserID         int        `json:"user_id"`
	ProjectID      *int       `json:"project_id,omitempty"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Category       Category   `json:"category"`
	Status         Status     `json:"status"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	EstimatedHours *float64   `json:"estimated_hours,omitempty"`
	BlockedCount   int        `json:"blocked_count"` // pending tasks waiting on this one
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Hours returns the estimate, or 0 when none was given.
func (t Task) Hours() float64 {
	if t.EstimatedHours == nil {
		return 0
	}
	return *t.EstimatedHours
}

type TaskDependency struct {
	TaskID          int `json:"task_id"`
	DependsOnTaskID int `json:"depends_on_task_id"`
}

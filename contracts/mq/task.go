package mq

import "time"

// Change kinds carried by TaskChangedPayload.
const (
	ChangeCreated    = "created"
	ChangeUpdated    = "updated"
	ChangeStatus     = "status"
	ChangeDeleted    = "deleted"
	ChangeDependency = "dependency"
)

// TaskChangedPayload is published on task.changed after any task mutation.
type TaskChangedPayload struct {
	TaskID  int    `json:"task_id"`
	UserID  int    `json:"user_id"`
	Change  string `json:"change"`
	Status  string `json:"status,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// ScheduleGeneratedPayload is published on schedule.generated after a
// daily schedule is computed.
type ScheduleGeneratedPayload struct {
	UserID         int       `json:"user_id"`
	Date           string    `json:"date"`
	TotalHours     float64   `json:"total_hours"`
	ScheduledTasks int       `json:"scheduled_tasks"`
	DeferredTasks  int       `json:"deferred_tasks"`
	Source         string    `json:"source"` // request, runner
	GeneratedAt    time.Time `json:"generated_at"`
	TraceID        string    `json:"trace_id,omitempty"`
}

// TaskOverduePayload is published on task.overdue once per task per day.
type TaskOverduePayload struct {
	TaskID  int    `json:"task_id"`
	UserID  int    `json:"user_id"`
	Title   string `json:"title"`
	DueDate string `json:"due_date"` // YYYY-MM-DD
}

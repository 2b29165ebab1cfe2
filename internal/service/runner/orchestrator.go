package runner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	contractmq "curatorhub/contracts/mq"
	"curatorhub/internal/model"
	"curatorhub/internal/priority"
	"curatorhub/internal/service/dashboard"
	"curatorhub/pkg/mq"
	"curatorhub/pkg/otel"
	"curatorhub/pkg/trace"
)

const overdueHandler = "task.overdue"

type TaskStore interface {
	ListActiveUserIDs(ctx context.Context) ([]int, error)
	ListOverdue(ctx context.Context, today time.Time) ([]model.Task, error)
}

type Scheduler interface {
	DailySchedule(ctx context.Context, userID int, day time.Time, source string) (*priority.DailySchedule, error)
	Invalidate(ctx context.Context, userID int)
}

type Publisher interface {
	PublishWithContext(ctx context.Context, routingKey string, payload any) error
}

type Deduper interface {
	AcquireOnce(ctx context.Context, handler, id string) bool
	Release(ctx context.Context, handler, id string)
}

// Orchestrator runs the worker's periodic jobs.
type Orchestrator struct {
	tasks     TaskStore
	scheduler Scheduler
	publisher Publisher
	deduper   Deduper
	now       func() time.Time
	logger    *zap.Logger
}

func NewOrchestrator(tasks TaskStore, scheduler Scheduler, publisher Publisher, deduper Deduper, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		tasks:     tasks,
		scheduler: scheduler,
		publisher: publisher,
		deduper:   deduper,
		now:       time.Now,
		logger:    logger,
	}
}

func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// RefreshSchedules recomputes today's schedule for every user holding
// eligible tasks. It returns how many schedules were refreshed.
func (o *Orchestrator) RefreshSchedules(ctx context.Context) (int, error) {
	ctx, traceID := trace.Ensure(ctx)
	ctx, span := otel.StartSpan(ctx, "runner.refresh_schedules")
	defer span.End()
	o.logger.Info("Refreshing schedules...", zap.String("trace_id", traceID))

	userIDs, err := o.tasks.ListActiveUserIDs(ctx)
	if err != nil {
		span.RecordError(err)
		o.logger.Error("Failed to list active users", zap.Error(err))
		return 0, err
	}

	today := o.now()
	refreshed := 0
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		o.scheduler.Invalidate(ctx, userID)
		if _, err := o.scheduler.DailySchedule(ctx, userID, today, dashboard.SourceRunner); err != nil {
			o.logger.Error("Failed to refresh schedule",
				zap.Int("user_id", userID),
				zap.Error(err),
			)
			continue
		}
		refreshed++
	}

	o.logger.Info("Schedule refresh completed",
		zap.Int("users", len(userIDs)),
		zap.Int("refreshed", refreshed),
	)
	return refreshed, nil
}

// NotifyOverdue publishes task.overdue at most once per task and day.
func (o *Orchestrator) NotifyOverdue(ctx context.Context) (int, error) {
	ctx, traceID := trace.Ensure(ctx)
	ctx, span := otel.StartSpan(ctx, "runner.notify_overdue")
	defer span.End()
	o.logger.Info("Checking for overdue tasks...", zap.String("trace_id", traceID))

	now := o.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	date := today.Format("2006-01-02")

	tasks, err := o.tasks.ListOverdue(ctx, today)
	if err != nil {
		span.RecordError(err)
		o.logger.Error("Failed to list overdue tasks", zap.Error(err))
		return 0, err
	}
	if len(tasks) == 0 {
		o.logger.Debug("No overdue tasks found")
		return 0, nil
	}

	published := 0
	for _, t := range tasks {
		id := fmt.Sprintf("%d:%s", t.ID, date)
		if !o.deduper.AcquireOnce(ctx, overdueHandler, id) {
			continue
		}

		payload := contractmq.TaskOverduePayload{
			TaskID: t.ID,
			UserID: t.UserID,
			Title:  t.Title,
		}
		if t.DueDate != nil {
			payload.DueDate = t.DueDate.Format("2006-01-02")
		}
		if err := o.publisher.PublishWithContext(ctx, mq.RoutingTaskOverdue, payload); err != nil {
			o.logger.Error("Failed to publish task.overdue event",
				zap.Int("task_id", t.ID),
				zap.Error(err),
			)
			o.deduper.Release(ctx, overdueHandler, id)
			continue
		}
		published++
		o.logger.Info("Published task.overdue event", zap.Int("task_id", t.ID))
	}

	o.logger.Info("Overdue check completed",
		zap.Int("overdue_count", len(tasks)),
		zap.Int("published", published),
	)
	return published, nil
}

package dashboard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	contractmq "curatorhub/contracts/mq"
	"curatorhub/internal/model"
	"curatorhub/internal/priority"
	"curatorhub/pkg/metrics"
	"curatorhub/pkg/mq"
	"curatorhub/pkg/trace"
)

var ErrInvalidHour = errors.New("hour must be between 0 and 23")

// Sources recorded on schedule.generated.
const (
	SourceRequest = "request"
	SourceRunner  = "runner"
)

type TaskStore interface {
	Get(ctx context.Context, userID, id int) (*model.Task, error)
	ListByUser(ctx context.Context, userID int) ([]model.Task, error)
	ListEligibleByUser(ctx context.Context, userID int) ([]model.Task, error)
}

type ProjectStore interface {
	ListByUser(ctx context.Context, userID int) ([]model.Project, error)
}

type Publisher interface {
	PublishWithContext(ctx context.Context, routingKey string, payload any) error
}

// Service feeds stored tasks to the priority engine.
type Service struct {
	tasks     TaskStore
	projects  ProjectStore
	cache     ScheduleCache
	publisher Publisher
	scorer    *priority.Scorer
	planner   *priority.Planner
	now       func() time.Time
	logger    *zap.Logger
}

func NewService(tasks TaskStore, projects ProjectStore, cache ScheduleCache, publisher Publisher, logger *zap.Logger) *Service {
	scorer := priority.NewScorer()
	scorer.Dependency = priority.BlockingDependency

	return &Service{
		tasks:     tasks,
		projects:  projects,
		cache:     cache,
		publisher: publisher,
		scorer:    scorer,
		planner:   priority.NewPlanner(scorer),
		now:       time.Now,
		logger:    logger,
	}
}

// WithClock replaces the wall clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.scorer.Now = now
	return s
}

func (s *Service) TopPriorities(ctx context.Context, userID int) ([]priority.UrgencyResult, error) {
	tasks, err := s.tasks.ListEligibleByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	return s.planner.TopPriorityTasksAt(tasks, s.now()), nil
}

// DailySchedule returns the schedule for day, from cache when present. A
// zero day means today.
func (s *Service) DailySchedule(ctx context.Context, userID int, day time.Time, source string) (*priority.DailySchedule, error) {
	if day.IsZero() {
		day = s.now()
	}
	date := day.Format("2006-01-02")
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, userID, date); ok {
			return cached, nil
		}
	}

	tasks, err := s.tasks.ListEligibleByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	now := s.now()
	schedule := s.planner.ScheduleFor(tasks, day, now)
	metrics.IncrementScheduleGenerated(source)

	if s.cache != nil {
		s.cache.Set(ctx, userID, &schedule)
	}
	s.announce(ctx, userID, &schedule, source, now)

	s.logger.Info("Schedule generated",
		zap.Int("user_id", userID),
		zap.String("date", date),
		zap.Float64("total_hours", schedule.TotalEstimatedHours),
		zap.Int("deferred", len(schedule.Deferred)),
		zap.String("source", source),
	)
	return &schedule, nil
}

func (s *Service) announce(ctx context.Context, userID int, schedule *priority.DailySchedule, source string, now time.Time) {
	if s.publisher == nil {
		return
	}
	payload := contractmq.ScheduleGeneratedPayload{
		UserID:         userID,
		Date:           schedule.Date,
		TotalHours:     schedule.TotalEstimatedHours,
		ScheduledTasks: len(schedule.Morning.Tasks) + len(schedule.Afternoon.Tasks) + len(schedule.Evening.Tasks),
		DeferredTasks:  len(schedule.Deferred),
		Source:         source,
		GeneratedAt:    now.UTC(),
		TraceID:        trace.FromContext(ctx),
	}
	if err := s.publisher.PublishWithContext(ctx, mq.RoutingScheduleGenerated, payload); err != nil {
		s.logger.Warn("Failed to publish schedule.generated", zap.Int("user_id", userID), zap.Error(err))
	}
}

// Invalidate drops the user's cached schedules.
func (s *Service) Invalidate(ctx context.Context, userID int) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, userID)
	}
}

// SuggestTime suggests when to work on a task. A nil hour means the current hour.
func (s *Service) SuggestTime(ctx context.Context, userID, taskID int, hour *int) (*priority.TimeSuggestion, error) {
	h := s.now().Hour()
	if hour != nil {
		if *hour < 0 || *hour > 23 {
			return nil, ErrInvalidHour
		}
		h = *hour
	}

	t, err := s.tasks.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	suggestion := priority.SuggestTaskTime(*t, h)
	return &suggestion, nil
}

func (s *Service) Stats(ctx context.Context, userID int) (*model.DashboardStats, error) {
	tasks, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	projects, err := s.projects.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}

	stats := BuildStats(tasks, projects, s.now())
	return &stats, nil
}

// BuildStats aggregates tasks and projects as of now.
func BuildStats(tasks []model.Task, projects []model.Project, now time.Time) model.DashboardStats {
	stats := model.DashboardStats{
		ByStatus:       map[model.Status]int{},
		ByCategory:     map[model.Category]int{},
		ActiveProjects: []model.Project{},
		TotalTasks:     len(tasks),
	}

	var completed, countable int
	for _, t := range tasks {
		stats.ByStatus[t.Status]++
		stats.ByCategory[t.Category]++

		if t.Status != model.StatusCancelled {
			countable++
		}
		if t.Status == model.StatusCompleted {
			completed++
		}
		if !t.Status.Eligible() {
			continue
		}

		stats.OpenHours += t.Hours()
		if t.DueDate != nil {
			switch days := priority.DaysUntil(*t.DueDate, now); {
			case days < 0:
				stats.Overdue++
			case days <= 7:
				stats.DueThisWeek++
			}
		}
	}
	if countable > 0 {
		stats.CompletionRatio = math.Round(float64(completed)/float64(countable)*100) / 100
	}

	for _, p := range projects {
		if p.Status == model.ProjectActive {
			stats.ActiveProjects = append(stats.ActiveProjects, p)
		}
	}
	return stats
}

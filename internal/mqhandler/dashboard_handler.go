package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	contractmq "curatorhub/contracts/mq"
	"curatorhub/internal/hub"
	"curatorhub/pkg/mq"
)

type Invalidator interface {
	Invalidate(ctx context.Context, userID int)
}

type Broadcaster interface {
	Publish(u hub.Update) int
}

// DashboardHandler turns broker events into cache invalidations and live
// dashboard updates.
type DashboardHandler struct {
	cache  Invalidator
	hub    Broadcaster
	logger *zap.Logger
}

func NewDashboardHandler(cache Invalidator, hub Broadcaster, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		cache:  cache,
		hub:    hub,
		logger: logger,
	}
}

// Register binds the handler's routing keys on r.
func (h *DashboardHandler) Register(r *mq.Router) {
	r.Register(mq.RoutingTaskChanged, h.HandleTaskChanged)
	r.Register(mq.RoutingScheduleGenerated, h.HandleScheduleGenerated)
	r.Register(mq.RoutingTaskOverdue, h.HandleTaskOverdue)
}

func (h *DashboardHandler) HandleTaskChanged(ctx context.Context, raw json.RawMessage) error {
	var p contractmq.TaskChangedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal TaskChangedPayload", zap.Error(err))
		return err
	}
	if p.UserID == 0 {
		return fmt.Errorf("task.changed without user_id (task %d)", p.TaskID)
	}

	h.logger.Info("Handling task.changed event",
		zap.Int("task_id", p.TaskID),
		zap.Int("user_id", p.UserID),
		zap.String("change", p.Change),
	)

	h.cache.Invalidate(ctx, p.UserID)
	h.hub.Publish(hub.Update{UserID: p.UserID, Kind: hub.KindTaskChanged, Data: raw})
	return nil
}

func (h *DashboardHandler) HandleScheduleGenerated(ctx context.Context, raw json.RawMessage) error {
	var p contractmq.ScheduleGeneratedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal ScheduleGeneratedPayload", zap.Error(err))
		return err
	}

	n := h.hub.Publish(hub.Update{UserID: p.UserID, Kind: hub.KindScheduleGenerated, Data: raw})
	h.logger.Debug("Schedule update broadcast",
		zap.Int("user_id", p.UserID),
		zap.String("date", p.Date),
		zap.Int("subscribers", n),
	)
	return nil
}

func (h *DashboardHandler) HandleTaskOverdue(ctx context.Context, raw json.RawMessage) error {
	var p contractmq.TaskOverduePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal TaskOverduePayload", zap.Error(err))
		return err
	}

	h.logger.Info("Handling task.overdue event",
		zap.Int("task_id", p.TaskID),
		zap.Int("user_id", p.UserID),
	)
	h.hub.Publish(hub.Update{UserID: p.UserID, Kind: hub.KindTaskOverdue, Data: raw})
	return nil
}

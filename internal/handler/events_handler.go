package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"curatorhub/internal/hub"
)

type Subscriber interface {
	Subscribe(userID int) (<-chan hub.Update, func())
}

// EventsHandler streams dashboard updates as Server-Sent Events.
type EventsHandler struct {
	hub       Subscriber
	keepAlive time.Duration
	logger    *zap.Logger
}

func NewEventsHandler(h Subscriber, keepAlive time.Duration, logger *zap.Logger) *EventsHandler {
	if keepAlive <= 0 {
		keepAlive = 25 * time.Second
	}
	return &EventsHandler{hub: h, keepAlive: keepAlive, logger: logger}
}

// Stream handles GET /events
func (h *EventsHandler) Stream(c *gin.Context) {
	userID, _ := currentUser(c)
	updates, cancel := h.hub.Subscribe(userID)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	// Send headers now so clients see the stream open before the first event.
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	h.logger.Debug("Event stream opened", zap.Int("user_id", userID))
	defer h.logger.Debug("Event stream closed", zap.Int("user_id", userID))

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case u, open := <-updates:
			if !open {
				return
			}
			c.SSEvent(u.Kind, u)
			c.Writer.Flush()
		case now := <-ticker.C:
			c.SSEvent("ping", gin.H{"at": now.UTC()})
			c.Writer.Flush()
		}
	}
}

package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

type MessageHandler func(ctx context.Context, data json.RawMessage) error

// Router dispatches messages of one queue to handlers by routing key.
type Router struct {
	routes map[string]MessageHandler
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		routes: make(map[string]MessageHandler),
		logger: logger,
	}
}

func (r *Router) Register(routingKey string, h MessageHandler) {
	r.routes[routingKey] = h
}

// RoutingKeys lists the keys with a registered handler.
func (r *Router) RoutingKeys() []string {
	keys := make([]string, 0, len(r.routes))
	for k := range r.routes {
		keys = append(keys, k)
	}
	return keys
}

// Handle runs the handler for routingKey. Unknown keys are skipped and a
// panicking handler is reported as an error.
func (r *Router) Handle(ctx context.Context, routingKey string, data json.RawMessage) (err error) {
	h, ok := r.routes[routingKey]
	if !ok {
		r.logger.Warn("No handler for routing key", zap.String("routing_key", routingKey))
		return nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Handler panic recovered", zap.String("routing_key", routingKey), zap.Any("panic", rec))
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()

	return h(ctx, data)
}

package outbox

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"curatorhub/pkg/trace"
)

// InsertEventInTx marshals payload and stores it as a pending event inside
// tx. The trace id on ctx is copied into the payload as "trace_id" when the
// payload is a JSON object without one.
func InsertEventInTx(
	ctx context.Context,
	tx pgx.Tx,
	repo *Repository,
	aggregateType string,
	aggregateID *int64,
	routingKey string,
	payload interface{},
) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	event := &Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		RoutingKey:    routingKey,
		Payload:       withTraceID(payloadJSON, trace.FromContext(ctx)),
		Status:        StatusPending,
	}

	return repo.InsertEvent(ctx, tx, event)
}

func withTraceID(payload json.RawMessage, traceID string) json.RawMessage {
	if traceID == "" {
		return payload
	}
	var m map[string]interface{}
	if err := json.Unmarshal(payload, &m); err != nil || m == nil {
		return payload
	}
	if _, ok := m["trace_id"]; ok {
		return payload
	}
	m["trace_id"] = traceID
	out, err := json.Marshal(m)
	if err != nil {
		return payload
	}
	return out
}

// contextFromPayload 从 payload 中提取 trace_id
func contextFromPayload(ctx context.Context, payload json.RawMessage) context.Context {
	var m struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(payload, &m); err != nil || m.TraceID == "" {
		return ctx
	}
	return trace.WithContext(ctx, m.TraceID)
}

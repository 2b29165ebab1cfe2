package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"curatorhub/pkg/trace"
)

// --- fakes ---

type fakeStore struct {
	pending  []*Event
	failed   []*Event
	sent     []int64
	failures map[int64]int
}

func newFakeStore(pending ...*Event) *fakeStore {
	return &fakeStore{pending: pending, failures: map[int64]int{}}
}

func (s *fakeStore) GetPendingEvents(ctx context.Context, limit int) ([]*Event, error) {
	return s.pending, nil
}
func (s *fakeStore) GetFailedEvents(ctx context.Context, limit int) ([]*Event, error) {
	return s.failed, nil
}
func (s *fakeStore) GetEventByID(ctx context.Context, id int64) (*Event, error) {
	for _, e := range append(append([]*Event{}, s.pending...), s.failed...) {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, ErrEventNotFound
}
func (s *fakeStore) MarkAsSent(ctx context.Context, id int64) error {
	s.sent = append(s.sent, id)
	return nil
}
func (s *fakeStore) MarkAsFailed(ctx context.Context, id int64, maxRetries int) error {
	s.failures[id]++
	return nil
}

type published struct {
	key     string
	body    string
	traceID string
}

type fakePublisher struct {
	failKey string
	got     []published
}

func (p *fakePublisher) PublishRaw(ctx context.Context, key string, body []byte) error {
	if key == p.failKey {
		return errors.New("broker down")
	}
	p.got = append(p.got, published{key: key, body: string(body), traceID: trace.FromContext(ctx)})
	return nil
}

// --- tests ---

func TestDispatchOnce(t *testing.T) {
	store := newFakeStore(
		&Event{ID: 1, RoutingKey: "task.changed", Payload: json.RawMessage(`{"task_id":1,"trace_id":"t-1"}`)},
		&Event{ID: 2, RoutingKey: "broken.key", Payload: json.RawMessage(`{"task_id":2}`)},
		&Event{ID: 3, RoutingKey: "task.changed", Payload: json.RawMessage(`not json`)},
	)
	pub := &fakePublisher{failKey: "broken.key"}

	sent := NewDispatcher(store, pub, zap.NewNop()).DispatchOnce(context.Background())

	if sent != 1 {
		t.Fatalf("DispatchOnce() sent=%d, want 1", sent)
	}
	if len(pub.got) != 1 || pub.got[0].traceID != "t-1" {
		t.Fatalf("published=%+v, want one message carrying trace t-1", pub.got)
	}
	if len(store.sent) != 1 || store.sent[0] != 1 {
		t.Fatalf("MarkAsSent ids=%v, want [1]", store.sent)
	}
	if store.failures[2] != 1 || store.failures[3] != 1 {
		t.Fatalf("MarkAsFailed counts=%v, want events 2 and 3 once", store.failures)
	}
}

func TestReplayFailedEvents(t *testing.T) {
	store := newFakeStore()
	store.failed = []*Event{
		{ID: 7, RoutingKey: "task.overdue", Payload: json.RawMessage(`{"task_id":7}`)},
		{ID: 8, RoutingKey: "broken.key", Payload: json.RawMessage(`{"task_id":8}`)},
	}
	pub := &fakePublisher{failKey: "broken.key"}

	n, err := NewReplayService(store, pub, zap.NewNop()).ReplayFailedEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("ReplayFailedEvents() err=%v", err)
	}
	if n != 1 {
		t.Fatalf("ReplayFailedEvents()=%d, want 1", n)
	}
}

func TestReplayEvent_NotFound(t *testing.T) {
	svc := NewReplayService(newFakeStore(), &fakePublisher{}, zap.NewNop())
	if err := svc.ReplayEvent(context.Background(), 99); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("ReplayEvent() err=%v, want %v", err, ErrEventNotFound)
	}
}

func TestNextAttempt(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	status, next := NextAttempt(2, 5, now)
	if status != StatusPending || next == nil || !next.Equal(now.Add(10*time.Second)) {
		t.Fatalf("NextAttempt(2,5)=(%s,%v), want pending at +10s", status, next)
	}

	status, next = NextAttempt(5, 5, now)
	if status != StatusFailed || next != nil {
		t.Fatalf("NextAttempt(5,5)=(%s,%v), want failed with no retry", status, next)
	}
}

func TestWithTraceID(t *testing.T) {
	got := withTraceID(json.RawMessage(`{"task_id":1}`), "abc")
	var m map[string]interface{}
	if err := json.Unmarshal(got, &m); err != nil {
		t.Fatalf("withTraceID() produced invalid JSON: %v", err)
	}
	if m["trace_id"] != "abc" {
		t.Fatalf("trace_id=%v, want abc", m["trace_id"])
	}

	kept := withTraceID(json.RawMessage(`{"trace_id":"orig"}`), "abc")
	if string(kept) != `{"trace_id":"orig"}` {
		t.Fatalf("withTraceID() overwrote existing id: %s", kept)
	}
}

package otel

import "testing"

func TestMQHeaderCarrier(t *testing.T) {
	headers := map[string]interface{}{"traceparent": "00-abc-def-01", "x-retry": 2}
	c := NewMQHeaderCarrier(headers)

	if got := c.Get("traceparent"); got != "00-abc-def-01" {
		t.Fatalf("Get(traceparent)=%q", got)
	}
	if got := c.Get("x-retry"); got != "" {
		t.Fatalf("Get(x-retry)=%q, want empty for non-string value", got)
	}

	c.Set("tracestate", "k=v")
	if headers["tracestate"] != "k=v" {
		t.Fatalf("Set() did not write through to the header map")
	}
	if len(c.Keys()) != 3 {
		t.Fatalf("Keys()=%v, want 3 keys", c.Keys())
	}
}

func TestNewMQHeaderCarrier_NilHeaders(t *testing.T) {
	c := NewMQHeaderCarrier(nil)
	c.Set("traceparent", "x")
	if c.Headers()["traceparent"] != "x" {
		t.Fatalf("Headers() missing value set on nil map")
	}
}

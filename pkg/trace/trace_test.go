package trace

import (
	"context"
	"testing"
)

func TestEnsure(t *testing.T) {
	ctx, id := Ensure(context.Background())
	if id == "" {
		t.Fatalf("Ensure() id is empty")
	}
	if got := FromContext(ctx); got != id {
		t.Fatalf("FromContext()=%q, want %q", got, id)
	}

	again, same := Ensure(ctx)
	if same != id || FromContext(again) != id {
		t.Fatalf("Ensure() regenerated id: %q vs %q", same, id)
	}
}

func TestFromContext_Empty(t *testing.T) {
	if got := FromContext(context.Background()); got != "" {
		t.Fatalf("FromContext()=%q, want empty", got)
	}
}

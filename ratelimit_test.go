package reflux

import (
	"context"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

func TestRateLimit(t *testing.T) {
	clock := clockz.NewFakeClock()
	limit := NewRateLimit[counter, msg, cmd](2, 2).Clock(clock)
	h := Chain[counter, msg, cmd](add, limit)
	ctx := context.Background()

	accepted := 0
	for i := 0; i < 4; i++ {
		if _, ok := h(ctx, counter{}, 1, None[cmd]()); ok {
			accepted++
		}
	}
	if accepted != 2 {
		t.Errorf("expected burst of 2 to pass, got %d", accepted)
	}

	clock.Advance(500 * time.Millisecond)
	if _, ok := h(ctx, counter{}, 1, None[cmd]()); !ok {
		t.Error("expected a token to refill after 500ms at 2/s")
	}
	if _, ok := h(ctx, counter{}, 1, None[cmd]()); ok {
		t.Error("expected the refilled token to be spent")
	}
}

func TestRateLimit_Only(t *testing.T) {
	clock := clockz.NewFakeClock()
	limit := NewRateLimit[counter, msg, cmd](1, 1).
		Clock(clock).
		Only(func(m msg) bool { return m > 10 })
	h := Chain[counter, msg, cmd](add, limit)
	ctx := context.Background()

	if _, ok := h(ctx, counter{}, 20, None[cmd]()); !ok {
		t.Fatal("expected first limited message to pass")
	}
	if _, ok := h(ctx, counter{}, 20, None[cmd]()); ok {
		t.Error("expected second limited message to be vetoed")
	}
	for i := 0; i < 5; i++ {
		if _, ok := h(ctx, counter{}, 1, None[cmd]()); !ok {
			t.Fatal("expected unmatched messages to bypass the limit")
		}
	}
}

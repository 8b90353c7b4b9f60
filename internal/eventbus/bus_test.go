package eventbus

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestBus(names ...string) (*Bus, *strings.Builder) {
	var out strings.Builder
	log := zerolog.New(&out)
	return New(log, names...), &out
}

func TestPublishRunsListenersInRegistrationOrder(t *testing.T) {
	t.Parallel()

	bus, _ := newTestBus("session:tick")
	var order []string
	bus.Subscribe("session:tick", func(any) { order = append(order, "first") })
	bus.Subscribe("session:tick", func(any) { order = append(order, "second") })

	bus.Publish("session:tick", nil)

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("order = %v", order)
	}
}

func TestPanickingListenerIsIsolated(t *testing.T) {
	t.Parallel()

	bus, out := newTestBus("session:tick")
	bus.Subscribe("session:tick", func(any) { panic("listener down") })
	called := false
	bus.Subscribe("session:tick", func(any) { called = true })

	bus.Publish("session:tick", nil)

	if !called {
		t.Fatalf("second listener was not invoked after first panicked")
	}
	if !strings.Contains(out.String(), "event listener failed") {
		t.Fatalf("panic was not logged: %s", out.String())
	}
}

func TestUnsubscribeDuringDispatchDoesNotSkipListeners(t *testing.T) {
	t.Parallel()

	bus, _ := newTestBus("session:tick")
	var calls []string
	var unsub func()
	unsub = bus.Subscribe("session:tick", func(any) {
		calls = append(calls, "self-removing")
		unsub()
	})
	bus.Subscribe("session:tick", func(any) { calls = append(calls, "stable") })

	bus.Publish("session:tick", nil)
	if len(calls) != 2 || calls[1] != "stable" {
		t.Fatalf("first dispatch calls = %v", calls)
	}

	bus.Publish("session:tick", nil)
	if len(calls) != 3 || calls[2] != "stable" {
		t.Fatalf("second dispatch calls = %v", calls)
	}
}

func TestSubscribeDuringDispatchIsDeferredToNextPublish(t *testing.T) {
	t.Parallel()

	bus, _ := newTestBus("session:tick")
	lateCalls := 0
	bus.Subscribe("session:tick", func(any) {
		bus.Subscribe("session:tick", func(any) { lateCalls++ })
	})

	bus.Publish("session:tick", nil)
	if lateCalls != 0 {
		t.Fatalf("listener added mid-dispatch must not run in same dispatch")
	}

	bus.Publish("session:tick", nil)
	if lateCalls != 1 {
		t.Fatalf("lateCalls = %d, want 1", lateCalls)
	}
}

func TestUnrecognizedNamesAreWarnedNotFatal(t *testing.T) {
	t.Parallel()

	bus, out := newTestBus("session:tick")
	received := false
	bus.Subscribe("session:typo", func(any) { received = true })
	bus.Publish("session:typo", nil)

	if !received {
		t.Fatalf("dispatch must still happen for unrecognized names")
	}
	logged := out.String()
	if !strings.Contains(logged, "subscribe to unrecognized event name") ||
		!strings.Contains(logged, "publish of unrecognized event name") {
		t.Fatalf("missing warnings: %s", logged)
	}
}

func TestPayloadReachesListener(t *testing.T) {
	t.Parallel()

	bus, _ := newTestBus("session:tick")
	var got any
	bus.Subscribe("session:tick", func(payload any) { got = payload })
	bus.Publish("session:tick", 17)

	if got != 17 {
		t.Fatalf("payload = %v, want 17", got)
	}
}

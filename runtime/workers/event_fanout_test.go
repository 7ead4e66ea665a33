package workers

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-relay/domain/event"
)

type recordingSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (s *recordingSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestEventFanout_BroadcastsToEverySink(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.DiscardHandler)

	domainEvents := make(chan event.DomainEvent, 8)
	telemetryEvents := make(chan event.DomainEvent, 8)

	first := &recordingSink{}
	second := &recordingSink{}
	fanout := NewEventFanout(log, domainEvents, telemetryEvents).Add(first, second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = fanout.Run(ctx) }()

	// When two events flow through
	domainEvents <- event.UserAuthenticated{User: "alice", At: time.Now()}
	domainEvents <- event.MessageRelayed{From: "alice", To: "bob", At: time.Now()}

	// Then both sinks see both events
	req.Eventually(func() bool { return first.count() == 2 && second.count() == 2 },
		time.Second, 10*time.Millisecond)

	// And the telemetry channel got a copy of each
	req.Len(telemetryEvents, 2)
}

func TestEventFanout_FullTelemetryChannelIsLossy(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.DiscardHandler)

	domainEvents := make(chan event.DomainEvent, 8)
	// Given a telemetry channel with no capacity left
	telemetryEvents := make(chan event.DomainEvent)

	sink := &recordingSink{}
	fanout := NewEventFanout(log, domainEvents, telemetryEvents).Add(sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = fanout.Run(ctx) }()

	domainEvents <- event.SessionClosed{User: "alice", Addr: "peer:1"}
	domainEvents <- event.SessionClosed{User: "bob", Addr: "peer:2"}

	// Then the sinks still receive everything; only telemetry is dropped
	req.Eventually(func() bool { return sink.count() == 2 },
		time.Second, 10*time.Millisecond)
}

func TestTelemetry_CountsByEventKind(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.DiscardHandler)

	events := make(chan event.DomainEvent, 16)
	telemetry := NewTelemetry(log, events, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = telemetry.Run(ctx) }()

	events <- event.UserAuthenticated{User: "alice"}
	events <- event.MessageRelayed{From: "alice", To: "bob"}
	events <- event.MessageParked{From: "bob", To: "carol"}
	events <- event.MessagesReplayed{User: "carol", Count: 3}
	events <- event.SessionClosed{User: "alice"}

	req.Eventually(func() bool {
		return telemetry.snapshot() == [5]uint64{1, 1, 1, 3, 1}
	}, time.Second, 10*time.Millisecond)
}

package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"chat-relay/domain/event"
)

// Telemetry aggregates domain events into counters and logs a snapshot
// at a fixed interval. Counters are atomic so a future HTTP surface can
// read them without coordination.
type Telemetry struct {
	log      *slog.Logger
	events   chan event.DomainEvent
	interval time.Duration

	Authenticated uint64
	Relayed       uint64
	Parked        uint64
	Replayed      uint64
	Closed        uint64
}

func NewTelemetry(log *slog.Logger, events chan event.DomainEvent, interval time.Duration) *Telemetry {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Telemetry{log: log, events: events, interval: interval}
}

func (t *Telemetry) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-t.events:
			t.count(evt)
		case <-ticker.C:
			counts := t.snapshot()
			t.log.Info("Relay telemetry",
				"authenticated", counts[0],
				"relayed", counts[1],
				"parked", counts[2],
				"replayed", counts[3],
				"closed", counts[4],
			)
		}
	}
}

func (t *Telemetry) snapshot() [5]uint64 {
	return [5]uint64{
		atomic.LoadUint64(&t.Authenticated),
		atomic.LoadUint64(&t.Relayed),
		atomic.LoadUint64(&t.Parked),
		atomic.LoadUint64(&t.Replayed),
		atomic.LoadUint64(&t.Closed),
	}
}

func (t *Telemetry) count(evt event.DomainEvent) {
	switch e := evt.(type) {
	case event.UserAuthenticated:
		atomic.AddUint64(&t.Authenticated, 1)
	case event.MessageRelayed:
		atomic.AddUint64(&t.Relayed, 1)
	case event.MessageParked:
		atomic.AddUint64(&t.Parked, 1)
	case event.MessagesReplayed:
		atomic.AddUint64(&t.Replayed, uint64(e.Count))
	case event.SessionClosed:
		atomic.AddUint64(&t.Closed, 1)
	}
}

package workers

import (
	"context"
	"log/slog"

	"chat-relay/contract"
	"chat-relay/domain/event"
)

// EventFanout broadcasts domain events to in-process consumers.
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// ordering, durability, or retries. It is intended for observability and
// side effects (logs, counters), never for core routing.
type EventFanout struct {
	log            *slog.Logger
	domainEvents   chan event.DomainEvent
	telemetryEvent chan event.DomainEvent
	sinks          []contract.EventSink
}

func NewEventFanout(log *slog.Logger, domainEvents, telemetryEvent chan event.DomainEvent) *EventFanout {
	return &EventFanout{log: log, domainEvents: domainEvents, telemetryEvent: telemetryEvent}
}

func (w *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	w.sinks = append(w.sinks, sinks...)
	return w
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.domainEvents:
			w.fanout(ctx, evt)
			select {
			case w.telemetryEvent <- evt:
			default:
				w.log.Debug("Telemetry event lost")
			}
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		}
	}
}

// fanout: one sink for each event.
func (w *EventFanout) fanout(ctx context.Context, evt event.DomainEvent) {
	for _, sink := range w.sinks {
		if err := sink.Consume(ctx, evt); err != nil {
			w.log.Debug("Event sink failed", "error", err)
		}
	}
}

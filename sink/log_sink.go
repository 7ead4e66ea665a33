// Package sink contains EventSink implementations fed by the fan-out
// worker.
package sink

import (
	"context"
	"fmt"
	"log/slog"

	"chat-relay/domain/event"
)

// LogSink writes every domain event to the operator log at debug level.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) LogSink {
	return LogSink{log: log}
}

func (s LogSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.UserAuthenticated:
		s.log.Debug("User authenticated", "user", evt.User)
	case event.MessageRelayed:
		s.log.Debug("Message relayed", "from", evt.From, "to", evt.To)
	case event.MessageParked:
		s.log.Debug("Message parked", "from", evt.From, "to", evt.To)
	case event.MessagesReplayed:
		s.log.Debug("Messages replayed", "user", evt.User, "count", evt.Count)
	case event.SessionClosed:
		s.log.Debug("Session closed", "user", evt.User, "addr", evt.Addr)
	default:
		s.log.Debug(fmt.Sprintf("Unhandled event : %v", evt))
	}
	return nil
}

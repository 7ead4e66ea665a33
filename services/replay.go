package services

import (
	"context"
	"log/slog"
	"time"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/protocol"
	"chat-relay/runtime"
)

// Replay drains the offline mailbox for a freshly authenticated
// identity. Delivery is at most once: after the batch is attempted the
// parked messages are deleted unconditionally, so a message lost to an
// intervening disconnect is not retried.
type Replay struct {
	log      *slog.Logger
	registry contract.Registry
	mailbox  contract.OfflineMailbox
}

func NewReplay(log *slog.Logger, registry contract.Registry,
	mailbox contract.OfflineMailbox) *Replay {
	return &Replay{log: log, registry: registry, mailbox: mailbox}
}

// Run delivers every parked message for username in sent-at order,
// then clears the mailbox. Mailbox failures are logged, never surfaced.
func (r *Replay) Run(_ context.Context, sess *runtime.Session, username string) {
	messages, err := r.mailbox.FetchOrdered(username)
	if err != nil {
		r.log.Error("Failed to fetch parked messages", "user", username, "error", err)
		return
	}
	if len(messages) == 0 {
		return
	}

	// The signal is only emitted right after registration, so the
	// lookup is expected to succeed; a miss means the session raced a
	// takeover and the batch stays parked for the winner.
	sink, online := r.registry.Lookup(domain.Identity(username))
	if !online {
		r.log.Warn("Replay target vanished before delivery", "user", username)
		return
	}

	delivered := 0
	for _, msg := range messages {
		if sink.Enqueue(protocol.Message{From: msg.Sender, To: msg.Receiver, Text: msg.Text}) {
			delivered++
		}
	}

	if err := r.mailbox.DeleteAll(username); err != nil {
		r.log.Error("Failed to clear mailbox after replay", "user", username, "error", err)
	}

	sess.Publish(event.MessagesReplayed{User: username, Count: delivered, At: time.Now()})
	r.log.Info("Replayed parked messages", "user", username, "count", delivered)
}

// Package services holds the protocol business rules: routing inbound
// frames, gating authentication, and replaying offline messages.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/protocol"
	"chat-relay/runtime"
)

// Router interprets decoded client frames. It receives the presence
// registry and the external collaborators through its constructor and
// keeps no state of its own beyond them.
type Router struct {
	log         *slog.Logger
	registry    contract.Registry
	credentials contract.CredentialStore
	mailbox     contract.OfflineMailbox
	moderator   *moderation.Moderator
	gate        *AuthGate
	replay      *Replay
}

func NewRouter(log *slog.Logger, registry contract.Registry,
	credentials contract.CredentialStore, mailbox contract.OfflineMailbox,
	moderator *moderation.Moderator) *Router {
	return &Router{
		log:         log,
		registry:    registry,
		credentials: credentials,
		mailbox:     mailbox,
		moderator:   moderator,
		gate:        NewAuthGate(log, registry, credentials),
		replay:      NewReplay(log, registry, mailbox),
	}
}

var _ runtime.FrameHandler = (*Router)(nil)

// HandleFrame dispatches one decoded client frame.
//
// send_message is deliberately not gated on a bound identity: the
// protocol defines no authentication precondition for it, and this
// relay preserves that contract.
func (r *Router) HandleFrame(ctx context.Context, sess *runtime.Session, frame protocol.ClientFrame) {
	switch f := frame.(type) {
	case protocol.SendMessage:
		r.sendMessage(sess, f)
	case protocol.RequestAuthenticate:
		r.gate.Authenticate(ctx, sess, f.Username, f.Password)
	case protocol.CreateUser:
		r.createUser(sess, f)
	default:
		sess.SendError(errors.ErrInvalidMessage)
	}
}

// HandleSignal reacts to internal signals emitted on the session's own
// signal channel, currently only the offline-replay kick-off.
func (r *Router) HandleSignal(ctx context.Context, sess *runtime.Session, sig runtime.OfflineSignal) {
	r.replay.Run(ctx, sess, sig.Username)
}

// sendMessage routes a direct message: straight to the receiver's
// outbound queue when online, into the offline mailbox when the
// receiver is known but absent.
func (r *Router) sendMessage(sess *runtime.Session, f protocol.SendMessage) {
	text := f.Text
	if r.moderator != nil {
		text = r.moderator.Censor(text)
	}

	if target, online := r.registry.Lookup(domain.Identity(f.To)); online {
		// Best effort: a closed target queue is the target's problem,
		// never surfaced to the sender.
		if !target.Enqueue(protocol.Message{From: f.From, To: f.To, Text: text}) {
			r.log.Warn("Receiver queue closed, frame dropped", "from", f.From, "to", f.To)
		}
		sess.Publish(event.MessageRelayed{From: f.From, To: f.To, At: time.Now()})
		sess.Send(protocol.Success{})
		return
	}

	known, err := r.credentials.Exists(f.To)
	if err != nil {
		sess.SendError(errors.AsProtocol(err))
		return
	}
	if !known {
		sess.SendError(errors.ErrUserNotExist)
		return
	}

	if err := r.mailbox.Store(f.From, f.To, text); err != nil {
		// Logged only: parking is fire-and-forget from the sender's
		// point of view.
		r.log.Error("Failed to park offline message", "from", f.From, "to", f.To, "error", err)
	} else {
		sess.Publish(event.MessageParked{From: f.From, To: f.To, At: time.Now()})
	}
	sess.Send(protocol.Success{})
}

func (r *Router) createUser(sess *runtime.Session, f protocol.CreateUser) {
	req := auth.CredentialsRequest{Username: f.Username, Password: f.Password}
	if err := auth.ValidateCredentials(req); err != nil {
		sess.SendError(errors.AsProtocol(err))
		return
	}

	if err := r.credentials.Create(f.Username, f.Password); err != nil {
		sess.SendError(errors.AsProtocol(err))
		return
	}

	r.log.Info(fmt.Sprintf("User created: %s", f.Username))
	sess.Send(protocol.UserCreated{})
}

// Package runtime owns the live side of the relay: the presence
// registry and the per-connection session lifecycle. It contains no
// protocol business rules; those live in services.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/protocol"
)

// OfflineSignal asks the session's signal duty to replay parked
// messages for a freshly authenticated identity.
type OfflineSignal struct {
	Username string
}

// FrameHandler interprets decoded inbound frames and internal signals.
// Implemented by services.Router; injected so runtime stays free of
// routing rules.
type FrameHandler interface {
	HandleFrame(ctx context.Context, sess *Session, frame protocol.ClientFrame)
	HandleSignal(ctx context.Context, sess *Session, sig OfflineSignal)
}

// Session owns one connection. It runs three duties: an inbound loop
// reading the transport, an outbound loop draining the delivery queue,
// and a signal loop feeding offline replay. The first duty to exit
// cancels the session context and the remaining duties wind down.
type Session struct {
	log       *slog.Logger
	transport contract.Transport
	registry  contract.Registry
	handler   FrameHandler
	events    chan<- event.DomainEvent

	queue   *outboundQueue
	signals chan OfflineSignal

	// identity cell, guarded no wider than a single read or write
	mu       sync.Mutex
	identity domain.Identity
}

func NewSession(log *slog.Logger, transport contract.Transport,
	registry contract.Registry, handler FrameHandler,
	events chan<- event.DomainEvent, signalBuffer int) *Session {
	if signalBuffer <= 0 {
		signalBuffer = 16
	}
	return &Session{
		log:       log,
		transport: transport,
		registry:  registry,
		handler:   handler,
		events:    events,
		queue:     newOutboundQueue(),
		signals:   make(chan OfflineSignal, signalBuffer),
	}
}

// Identity returns the currently bound identity, empty until the first
// authentication attempt.
func (s *Session) Identity() domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// BindIdentity rebinds the identity cell. Called by the auth gate
// before the credential check resolves, so a disconnect mid-check still
// deregisters the attempted identity.
func (s *Session) BindIdentity(identity domain.Identity) {
	s.mu.Lock()
	s.identity = identity
	s.mu.Unlock()
}

// Sink exposes the session's outbound delivery handle for registration
// in the presence registry.
func (s *Session) Sink() contract.FrameSink {
	return s.queue
}

// Send enqueues a frame to this session's own outbound queue.
// A rejected enqueue means the session already terminated; callers
// treat that as best-effort delivery and move on.
func (s *Session) Send(frame protocol.ServerFrame) bool {
	return s.queue.Enqueue(frame)
}

// SendError wraps a taxonomy error into an error frame and enqueues it.
func (s *Session) SendError(perr *errors.ProtocolError) bool {
	return s.Send(protocol.Error{Err: perr})
}

// Signal hands an internal signal to the session's signal duty.
// Lossy on overflow; replay is best-effort by design.
func (s *Session) Signal(sig OfflineSignal) {
	select {
	case s.signals <- sig:
	default:
		s.log.Warn("Internal signal dropped, channel full", "user", sig.Username)
	}
}

// RemoteAddr identifies the peer for logging.
func (s *Session) RemoteAddr() string {
	return s.transport.RemoteAddr()
}

// Run executes the session until its first duty exits, then tears
// everything down: cancel the shared context, close the queue and the
// transport, deregister the bound identity.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.log.Info(fmt.Sprintf("Client connected: %s", s.RemoteAddr()))

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		defer cancel()
		s.inbound(ctx)
	}()
	go func() {
		defer wg.Done()
		defer cancel()
		s.outbound(ctx)
	}()
	go func() {
		defer wg.Done()
		defer cancel()
		s.internalSignals(ctx)
	}()
	wg.Wait()

	s.queue.Close()
	_ = s.transport.Close()

	identity := s.Identity()
	if identity != "" {
		s.registry.DeregisterSink(identity, s.queue)
	}
	s.publish(event.SessionClosed{User: string(identity), Addr: s.RemoteAddr(), At: time.Now()})
	s.log.Info(fmt.Sprintf("Client disconnected: %s", s.RemoteAddr()), "user", string(identity))
	return nil
}

// inbound reads frames until the transport fails. One malformed frame
// bounces an invalid_message error back and keeps the connection open.
func (s *Session) inbound(ctx context.Context) {
	for {
		data, err := s.transport.ReadFrame(ctx)
		if err != nil {
			return
		}

		frame, err := protocol.DecodeClient(data)
		if err != nil {
			s.SendError(errors.AsProtocol(err))
			continue
		}
		s.handler.HandleFrame(ctx, s, frame)
	}
}

// outbound drains the queue into the transport. A write failure means
// the transport is dead and ends the duty; a serialization failure is
// logged and the frame skipped.
func (s *Session) outbound(ctx context.Context) {
	for {
		frame, ok := s.queue.Dequeue(ctx)
		if !ok {
			return
		}

		data, err := protocol.EncodeServer(frame)
		if err != nil {
			s.log.Error("Dropping unserializable outbound frame", "tag", frame.Tag(), "error", err)
			continue
		}
		if err := s.transport.WriteFrame(data); err != nil {
			return
		}
	}
}

func (s *Session) internalSignals(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-s.signals:
			s.handler.HandleSignal(ctx, s, sig)
		}
	}
}

func (s *Session) publish(e event.DomainEvent) {
	if s.events == nil {
		return
	}
	select {
	case s.events <- e:
	default:
		s.log.Debug("Telemetry event lost")
	}
}

// Publish exposes the lossy telemetry channel to collaborators that act
// on behalf of this session (router, replay).
func (s *Session) Publish(e event.DomainEvent) {
	s.publish(e)
}

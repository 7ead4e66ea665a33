package services

import (
	"context"
	"log/slog"
	"time"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/protocol"
	"chat-relay/runtime"
)

// AuthGate validates credentials and flips a session online.
type AuthGate struct {
	log         *slog.Logger
	registry    contract.Registry
	credentials contract.CredentialStore
}

func NewAuthGate(log *slog.Logger, registry contract.Registry,
	credentials contract.CredentialStore) *AuthGate {
	return &AuthGate{log: log, registry: registry, credentials: credentials}
}

// Authenticate binds the identity cell before the credential check
// resolves, so a disconnect mid-check still deregisters the attempted
// identity. On success it registers the session's delivery handle,
// acknowledges with an authenticated frame, and signals the session's
// own replay duty. Re-authentication under a different name releases
// the old name's registration before rebinding and re-registering.
func (g *AuthGate) Authenticate(_ context.Context, sess *runtime.Session, username, password string) {
	identity := domain.Identity(username)
	if prior := sess.Identity(); prior != "" && prior != identity {
		// Rebinding abandons the previous name. Its registry entry
		// must not outlive the claim, and the session's own teardown
		// only deregisters the identity bound at that moment.
		g.registry.DeregisterSink(prior, sess.Sink())
	}
	sess.BindIdentity(identity)

	if err := g.credentials.Verify(username, password); err != nil {
		sess.SendError(errors.AsProtocol(err))
		return
	}

	if prior, taken := g.registry.Lookup(identity); taken && prior != sess.Sink() {
		// Last authenticator wins: the earlier session stays open but
		// becomes unreachable by direct address.
		g.log.Warn("Identity re-registered by a new session", "user", username)
	}
	g.registry.Register(identity, sess.Sink())

	sess.Send(protocol.Authenticated{})
	sess.Publish(event.UserAuthenticated{User: username, At: time.Now()})

	// Decoupled from the inbound loop: replay runs on the session's
	// signal duty, not here.
	sess.Signal(runtime.OfflineSignal{Username: username})
}

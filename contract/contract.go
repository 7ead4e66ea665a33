//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/protocol"
)

// CredentialStore is the external account collaborator. A nil error from
// Verify means the credentials authenticate; every failure is a value of
// the errors taxonomy (user_not_found, password_mismatch, store_failure...).
type CredentialStore interface {
	Verify(username, password string) error
	Create(username, password string) error
	Exists(username string) (bool, error)
}

// OfflineMailbox parks messages addressed to absent identities.
type OfflineMailbox interface {
	Store(sender, receiver, text string) error
	FetchOrdered(receiver string) ([]domain.StoredMessage, error)
	DeleteAll(receiver string) error
}

// FrameSink is one session's outbound delivery handle. Enqueue never
// blocks; it reports false once the owning session has terminated.
type FrameSink interface {
	Enqueue(frame protocol.ServerFrame) bool
}

// Registry is the presence registry: the single source of truth for
// which identities are online and how to reach them.
//
// Register overwrites silently: the last authenticator wins. To keep the
// presence invariant honest under that policy, a terminating session
// deregisters with DeregisterSink so it never evicts an identity that a
// later session has since claimed.
type Registry interface {
	Register(identity domain.Identity, sink FrameSink)
	Lookup(identity domain.Identity) (FrameSink, bool)
	Deregister(identity domain.Identity)
	DeregisterSink(identity domain.Identity, sink FrameSink)
}

// Transport is one upgraded bidirectional connection. The read half and
// write half are each owned by exactly one goroutine.
type Transport interface {
	ReadFrame(ctx context.Context) ([]byte, error)
	WriteFrame(data []byte) error
	RemoteAddr() string
	Close() error
}

// EventSink consumes best-effort telemetry events.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

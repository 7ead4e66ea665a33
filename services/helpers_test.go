package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/protocol"
	"chat-relay/runtime"
)

// fakeCredentials is an in-memory credential store with injectable
// failures.
type fakeCredentials struct {
	mu        sync.Mutex
	passwords map[string]string
	verifyErr error
	existsErr error
	createErr error
}

func newFakeCredentials(users map[string]string) *fakeCredentials {
	if users == nil {
		users = make(map[string]string)
	}
	return &fakeCredentials{passwords: users}
}

func (f *fakeCredentials) Verify(username, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.verifyErr != nil {
		return f.verifyErr
	}
	stored, ok := f.passwords[username]
	if !ok {
		return errors.AuthenticateError(errors.KindUserNotFound)
	}
	if stored != password {
		return errors.AuthenticateError(errors.KindPasswordMismatch)
	}
	return nil
}

func (f *fakeCredentials) Create(username, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.passwords[username]; ok {
		return errors.AuthenticateError(errors.KindUserAlreadyExists)
	}
	f.passwords[username] = password
	return nil
}

func (f *fakeCredentials) Exists(username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.passwords[username]
	return ok, nil
}

// fakeMailbox keeps parked messages in insertion order.
type fakeMailbox struct {
	mu       sync.Mutex
	stored   []domain.StoredMessage
	storeErr error
	fetchErr error
}

func (f *fakeMailbox) Store(sender, receiver, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return f.storeErr
	}
	f.stored = append(f.stored, domain.StoredMessage{
		Sender: sender, Receiver: receiver, Text: text, SentAt: time.Now(),
	})
	return nil
}

func (f *fakeMailbox) FetchOrdered(receiver string) ([]domain.StoredMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	var out []domain.StoredMessage
	for _, m := range f.stored {
		if m.Receiver == receiver {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMailbox) DeleteAll(receiver string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.stored[:0]
	for _, m := range f.stored {
		if m.Receiver != receiver {
			kept = append(kept, m)
		}
	}
	f.stored = kept
	return nil
}

func (f *fakeMailbox) count(receiver string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.stored {
		if m.Receiver == receiver {
			n++
		}
	}
	return n
}

// recordSink stands in for another session's delivery handle.
type recordSink struct {
	mu     sync.Mutex
	frames []protocol.ServerFrame
	reject bool
}

func (s *recordSink) Enqueue(frame protocol.ServerFrame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reject {
		return false
	}
	s.frames = append(s.frames, frame)
	return true
}

func (s *recordSink) snapshot() []protocol.ServerFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.ServerFrame(nil), s.frames...)
}

// scriptedTransport captures everything the session writes back.
type scriptedTransport struct {
	inbound  chan []byte
	outbound chan []byte
	once     sync.Once
	closed   chan struct{}
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{
		inbound:  make(chan []byte, 16),
		outbound: make(chan []byte, 64),
		closed:   make(chan struct{}),
	}
}

func (f *scriptedTransport) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-f.closed:
		return nil, io.EOF
	case data, ok := <-f.inbound:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	}
}

func (f *scriptedTransport) WriteFrame(data []byte) error {
	select {
	case <-f.closed:
		return io.ErrClosedPipe
	case f.outbound <- data:
		return nil
	}
}

func (f *scriptedTransport) RemoteAddr() string { return "test-peer:9999" }

func (f *scriptedTransport) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

// relayFixture wires a router to one live sender session.
type relayFixture struct {
	router      *Router
	registry    *runtime.Registry
	credentials *fakeCredentials
	mailbox     *fakeMailbox
	sess        *runtime.Session
	transport   *scriptedTransport
	done        chan error
}

func newRelayFixture(t *testing.T, users map[string]string) *relayFixture {
	t.Helper()

	registry := runtime.NewRegistry()
	credentials := newFakeCredentials(users)
	mailbox := &fakeMailbox{}
	log := slog.New(slog.DiscardHandler)
	router := NewRouter(log, registry, credentials, mailbox, nil)

	transport := newScriptedTransport()
	sess := runtime.NewSession(log, transport, registry, router, nil, 16)
	done := make(chan error, 1)
	go func() { done <- sess.Run(context.Background()) }()
	t.Cleanup(func() {
		transport.Close()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("session did not shut down")
		}
	})

	return &relayFixture{
		router:      router,
		registry:    registry,
		credentials: credentials,
		mailbox:     mailbox,
		sess:        sess,
		transport:   transport,
		done:        done,
	}
}

func (f *relayFixture) expectFrame(t *testing.T) protocol.ServerFrame {
	t.Helper()
	select {
	case data := <-f.transport.outbound:
		frame, err := protocol.DecodeServer(data)
		require.NoError(t, err)
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a reply frame")
		return nil
	}
}

func (f *relayFixture) expectError(t *testing.T, target *errors.ProtocolError) {
	t.Helper()
	frame := f.expectFrame(t)
	errFrame, ok := frame.(protocol.Error)
	require.True(t, ok, "expected an error frame, got %T", frame)
	require.ErrorIs(t, errFrame.Err, target)
}

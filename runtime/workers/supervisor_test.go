package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeWorker struct {
	calls int64
	run   func(ctx context.Context) error
}

func (w *fakeWorker) Run(ctx context.Context) error {
	atomic.AddInt64(&w.calls, 1)
	return w.run(ctx)
}

func (w *fakeWorker) callCount() int64 {
	return atomic.LoadInt64(&w.calls)
}

func TestSupervisor_RestartOnPanic(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.DiscardHandler)

	worker := &fakeWorker{run: func(context.Context) error { panic("boom") }}

	sup := NewSupervisor(log)

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	go sup.Add(worker).Run(ctx)

	// Waiting for panics and restarts
	time.Sleep(900 * time.Millisecond)

	req.GreaterOrEqual(worker.callCount(), int64(2))
}

func TestSupervisor_StopOnSuccess(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.DiscardHandler)

	// Given a worker running only once
	worker := &fakeWorker{run: func(context.Context) error { return nil }}

	sup := NewSupervisor(log)

	// Given a channel to notify when Run() terminated
	done := make(chan struct{})

	go func() {
		sup.Add(worker).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
		// Then supervisor detected a success, returned nil and stopped
	case <-time.After(500 * time.Millisecond):
		req.Fail("Supervisor should have stopped after worker success")
	}

	req.Equal(int64(1), worker.callCount())
}

func TestSupervisor_StopCancelsWorkers(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.DiscardHandler)

	// Given a worker that only returns on cancellation
	worker := &fakeWorker{run: func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}}

	sup := NewSupervisor(log)
	done := make(chan struct{})

	go func() {
		sup.Add(worker).Run(context.Background())
		close(done)
	}()

	// When the supervisor is stopped
	req.Eventually(func() bool { return worker.callCount() == 1 },
		time.Second, 10*time.Millisecond)
	sup.Stop()

	// Then every supervised goroutine winds down
	select {
	case <-done:
	case <-time.After(1 * time.Second):
		req.Fail("Supervisor did not stop its workers")
	}
}

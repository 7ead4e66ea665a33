package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"

	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"chat-relay/sink"
	"chat-relay/transport"
)

// Exit codes to provide meaningful status to the operating system or
// service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting. This keeps 'defer' statements (like the
// database close) running before the process exits, and decouples the
// initialization logic from the main entry point.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := config.CharacterRune()
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database (BadgerDB)
	options := badger.DefaultOptions(config.BadgerFilepath).
		WithLogger(nil)

	db, err := badger.Open(options)
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Defer ensures the database lock is released and buffers are
		// flushed before the function returns.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	if logger.Enabled(ctx, slog.LevelDebug) {
		endpoint := "/inspect"
		logger.Info("Debug Badger inspector available",
			"url", fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint))
		database.StartDebugServer(db, config.DebugPort, endpoint, database.DefaultMapper)
	}

	// 3. Collaborators: credential store, offline mailbox, presence
	// registry, optional moderation.
	users := repositories.NewUserRepository(db)
	mailbox := repositories.NewMailboxRepository(db, logger)
	registry := runtime.NewRegistry()

	var moderator *moderation.Moderator
	if words := config.CensoredWordList(); len(words) > 0 {
		moderator, err = moderation.NewModerator(words, charReplacement)
		if err != nil {
			return exitConfig, fmt.Errorf("moderation setup failed: %w", err)
		}
		logger.Info(fmt.Sprintf("Moderation enabled with %d censored words", len(words)))
	}

	// 4. Telemetry pipeline
	domainEvents := make(chan event.DomainEvent, config.EventBufferSize)
	telemetryEvents := make(chan event.DomainEvent, config.EventBufferSize)
	fanout := workers.NewEventFanout(logger, domainEvents, telemetryEvents).
		Add(sink.NewLogSink(logger))
	telemetry := workers.NewTelemetry(logger, telemetryEvents, config.TelemetryInterval)

	// 5. Router and websocket listener
	router := services.NewRouter(logger, registry, users, mailbox, moderator)

	server := transport.NewServer(logger, config.Addr, config.ReadTimeout,
		func(ctx context.Context, conn contract.Transport) {
			sess := runtime.NewSession(logger, conn, registry, router,
				domainEvents, config.SignalBufferSize)
			_ = sess.Run(ctx)
		})

	// 6. Supervised run until SIGINT/SIGTERM
	supervisor := workers.NewSupervisor(logger)
	supervisor.Add(server, fanout, telemetry)
	supervisor.Run(ctx)

	logger.Info("Relay stopped")
	return exitOK, nil
}

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"chat-relay/contract"
)

// ConnHandler runs one accepted connection to completion.
type ConnHandler func(ctx context.Context, conn contract.Transport)

// Server listens for websocket upgrades on /ws and hands each upgraded
// connection to the injected handler. It runs as a supervised worker.
type Server struct {
	log         *slog.Logger
	addr        string
	readTimeout time.Duration
	handle      ConnHandler
	upgrader    websocket.Upgrader
}

func NewServer(log *slog.Logger, addr string, readTimeout time.Duration, handle ConnHandler) *Server {
	return &Server{
		log:         log,
		addr:        addr,
		readTimeout: readTimeout,
		handle:      handle,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients connect from arbitrary origins; transport
			// security is assumed to come from the layer above us.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

var _ contract.Worker = (*Server)(nil)

// Handler exposes the upgrade endpoint. Sessions spawned from it stop
// when ctx is canceled.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		go s.handle(ctx, NewConn(ws, s.readTimeout))
	})
	return mux
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{Addr: s.addr, Handler: s.Handler(ctx)}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info(fmt.Sprintf("Relay listening on ws://%s/ws", s.addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

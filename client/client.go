package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"

	"chat-relay/protocol"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string `env:"RELAY_URL,default=ws://localhost:3000/ws"`
	LogLevel  string `env:"LOG_LEVEL,default=INFO"`
}

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run handles the websocket client lifecycle: connect, print inbound
// frames, and translate stdin commands into client frames.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", config.ServerURL, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = ws.Close()
	}()

	log.Info(fmt.Sprintf(">>> Connected to %s (Ctrl+C to quit)", config.ServerURL))
	fmt.Println("Commands: /create <user> <password> | /login <user> <password> | /msg <from> <to> <text>")

	// Reception loop, printed as frames arrive.
	go func() {
		defer stop()
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			frame, err := protocol.DecodeServer(data)
			if err != nil {
				log.Warn("Unreadable server frame", "raw", string(data))
				continue
			}
			printFrame(frame)
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		frame, err := parseCommand(scanner.Text())
		if err != nil {
			fmt.Println(err)
			continue
		}
		if frame == nil {
			continue
		}
		if err := ws.WriteJSON(frame); err != nil {
			return exitRuntime, fmt.Errorf("write failed: %w", err)
		}
	}
	return exitOK, nil
}

// commandFrame is a client frame with an explicit type tag for WriteJSON.
type commandFrame struct {
	Type     string `json:"type"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Text     string `json:"text,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

func parseCommand(line string) (*commandFrame, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}

	switch fields[0] {
	case "/create":
		if len(fields) != 3 {
			return nil, fmt.Errorf("usage: /create <user> <password>")
		}
		return &commandFrame{Type: protocol.TypeCreateUser, Username: fields[1], Password: fields[2]}, nil
	case "/login":
		if len(fields) != 3 {
			return nil, fmt.Errorf("usage: /login <user> <password>")
		}
		return &commandFrame{Type: protocol.TypeRequestAuthenticate, Username: fields[1], Password: fields[2]}, nil
	case "/msg":
		if len(fields) < 4 {
			return nil, fmt.Errorf("usage: /msg <from> <to> <text>")
		}
		return &commandFrame{
			Type: protocol.TypeSendMessage,
			From: fields[1],
			To:   fields[2],
			Text: strings.Join(fields[3:], " "),
		}, nil
	default:
		return nil, fmt.Errorf("unknown command: %s", fields[0])
	}
}

func printFrame(frame protocol.ServerFrame) {
	switch f := frame.(type) {
	case protocol.Message:
		fmt.Printf("[%s -> %s] %s\n", f.From, f.To, f.Text)
	case protocol.UserDisconnected:
		fmt.Printf("* %s disconnected\n", f.Username)
	case protocol.Error:
		fmt.Printf("! error: %v\n", f.Err)
	case protocol.Authenticated:
		fmt.Println("* authenticated")
	case protocol.UserCreated:
		fmt.Println("* user created")
	case protocol.Success:
		fmt.Println("* ok")
	}
}

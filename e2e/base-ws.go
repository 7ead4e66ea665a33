package e2e

import (
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"chat-relay/protocol"
)

type BaseWsSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseWsSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.RelayAddr == "" {
		s.T().Skip("RELAY_ADDR not set, skipping end-to-end suite")
	}
}

// WsConn dials the relay and returns a frame-level client with logging
// and optional colorized headers.
func (s *BaseWsSuite) WsConn(t *testing.T, name string) *WsClient {
	// 1. Print a colorized header for the connection step in logs
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)

	u := url.URL{Scheme: "ws", Host: s.Config.RelayAddr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	s.Require().NoError(err, "Failed to connect to relay at "+u.String())

	return &WsClient{t: t, conn: conn, debug: s.Config.DebugJSON}
}

// WithClient provides a connected relay client within a contextual
// test step and closes it afterwards.
func (s *BaseWsSuite) WithClient(name string, fn func(client *WsClient)) {
	client := s.WsConn(s.T(), name)
	defer client.Close()
	fn(client)
}

// WsClient wraps a websocket connection with the relay's JSON frames.
type WsClient struct {
	t     *testing.T
	conn  *websocket.Conn
	debug bool
}

func (c *WsClient) Close() error {
	return c.conn.Close()
}

// SendJSON writes one raw client frame.
func (c *WsClient) SendJSON(raw string) error {
	start := time.Now()
	err := c.conn.WriteMessage(websocket.TextMessage, []byte(raw))
	if c.debug {
		c.t.Logf("WS SEND in %v\n%s", time.Since(start), raw)
	}
	return err
}

// Expect reads the next server frame within the deadline and decodes it.
func (c *WsClient) Expect(timeout time.Duration) (protocol.ServerFrame, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if c.debug {
		c.t.Logf("WS RECV\n%s", data)
	}
	return protocol.DecodeServer(data)
}

// Package protocol defines the wire frames exchanged over the websocket.
// A frame is a JSON object with a "type" discriminator field; this
// package is the only place raw bytes are turned into frames and back.
package protocol

import (
	"encoding/json"

	"chat-relay/errors"
)

// Client-to-server frame tags.
const (
	TypeSendMessage         = "send_message"
	TypeRequestAuthenticate = "request_authenticate"
	TypeCreateUser          = "create_user"
)

// Server-to-client frame tags.
const (
	TypeMessage          = "message"
	TypeUserDisconnected = "user_disconnected"
	TypeError            = "error"
	TypeAuthenticated    = "authenticated"
	TypeUserCreated      = "user_created"
	TypeSuccess          = "success"
)

// ClientFrame is one decoded client-to-server protocol message.
type ClientFrame interface {
	clientFrame()
}

type SendMessage struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

type RequestAuthenticate struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (SendMessage) clientFrame()         {}
func (RequestAuthenticate) clientFrame() {}
func (CreateUser) clientFrame()          {}

// ServerFrame is one server-to-client protocol message.
type ServerFrame interface {
	Tag() string
}

type Message struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

type UserDisconnected struct {
	Username string `json:"username"`
}

type Error struct {
	Err *errors.ProtocolError `json:"error"`
}

// Authenticated, UserCreated and Success carry no payload.
type Authenticated struct{}
type UserCreated struct{}

// Success acknowledges that a client request was processed without
// error. It is never interpreted as content.
type Success struct{}

func (Message) Tag() string          { return TypeMessage }
func (UserDisconnected) Tag() string { return TypeUserDisconnected }
func (Error) Tag() string            { return TypeError }
func (Authenticated) Tag() string    { return TypeAuthenticated }
func (UserCreated) Tag() string      { return TypeUserCreated }
func (Success) Tag() string          { return TypeSuccess }

type envelope struct {
	Type string `json:"type"`
}

// DecodeClient parses one client frame. Unknown tags, missing tags and
// malformed JSON all map to the invalid_message taxonomy error so the
// caller can bounce it back without dropping the connection.
func DecodeClient(data []byte) (ClientFrame, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.ErrInvalidMessage
	}

	var frame ClientFrame
	var err error
	switch env.Type {
	case TypeSendMessage:
		var f SendMessage
		err = json.Unmarshal(data, &f)
		frame = f
	case TypeRequestAuthenticate:
		var f RequestAuthenticate
		err = json.Unmarshal(data, &f)
		frame = f
	case TypeCreateUser:
		var f CreateUser
		err = json.Unmarshal(data, &f)
		frame = f
	default:
		return nil, errors.ErrInvalidMessage
	}
	if err != nil {
		return nil, errors.ErrInvalidMessage
	}
	return frame, nil
}

// EncodeServer serializes a server frame with its type tag.
func EncodeServer(frame ServerFrame) ([]byte, error) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return nil, errors.ErrSerde
	}

	// Splice the discriminator into the payload object.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, errors.ErrSerde
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage, 1)
	}
	tag, err := json.Marshal(frame.Tag())
	if err != nil {
		return nil, errors.ErrSerde
	}
	fields["type"] = tag

	data, err := json.Marshal(fields)
	if err != nil {
		return nil, errors.ErrSerde
	}
	return data, nil
}

// DecodeServer parses one server frame. Used by the demo client and the
// end-to-end suite; the server itself never reads server frames.
func DecodeServer(data []byte) (ServerFrame, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.ErrInvalidMessage
	}

	switch env.Type {
	case TypeMessage:
		var f Message
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, errors.ErrInvalidMessage
		}
		return f, nil
	case TypeUserDisconnected:
		var f UserDisconnected
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, errors.ErrInvalidMessage
		}
		return f, nil
	case TypeError:
		var f Error
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, errors.ErrInvalidMessage
		}
		return f, nil
	case TypeAuthenticated:
		return Authenticated{}, nil
	case TypeUserCreated:
		return UserCreated{}, nil
	case TypeSuccess:
		return Success{}, nil
	default:
		return nil, errors.ErrInvalidMessage
	}
}

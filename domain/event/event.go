package event

import "time"

// DomainEvent is a best-effort observability signal. Events feed the
// telemetry fan-out, never core routing decisions.
type DomainEvent interface {
	Username() string
}

type UserAuthenticated struct {
	User string
	At   time.Time
}

func (e UserAuthenticated) Username() string { return e.User }

// MessageRelayed means a frame was enqueued to an online receiver.
type MessageRelayed struct {
	From string
	To   string
	At   time.Time
}

func (e MessageRelayed) Username() string { return e.To }

// MessageParked means a message was written to the offline mailbox.
type MessageParked struct {
	From string
	To   string
	At   time.Time
}

func (e MessageParked) Username() string { return e.To }

// MessagesReplayed reports one offline replay batch.
type MessagesReplayed struct {
	User  string
	Count int
	At    time.Time
}

func (e MessagesReplayed) Username() string { return e.User }

type SessionClosed struct {
	User string
	Addr string
	At   time.Time
}

func (e SessionClosed) Username() string { return e.User }

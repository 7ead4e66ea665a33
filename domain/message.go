// Package domain contains core concepts of the relay.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// Identity is the unique username a session may claim after
// authentication. Equality is exact string equality.
type Identity string

// Message is an in-flight direct message. It exists only while moving
// through a session's outbound queue.
type Message struct {
	From string
	To   string
	Text string
}

// StoredMessage is a message parked for an offline receiver.
// The mailbox orders them by SentAt ascending.
type StoredMessage struct {
	Sender   string
	Receiver string
	Text     string
	SentAt   time.Time
}

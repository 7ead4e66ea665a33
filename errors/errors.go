// Package errors defines the closed error taxonomy carried inside the
// protocol's error frames. Every failure the relay can report to a client
// is one of these values; anything else stays in the server log.
package errors

import (
	"encoding/json"
	"fmt"
)

// AuthenticateKind is the nested failure kind wrapped by an
// authenticate_error protocol error.
type AuthenticateKind string

const (
	KindGenericFailure      AuthenticateKind = "generic_failure"
	KindHashFailure         AuthenticateKind = "hash_failure"
	KindStoreFailure        AuthenticateKind = "store_failure"
	KindConfigFailure       AuthenticateKind = "config_failure"
	KindPasswordMismatch    AuthenticateKind = "password_mismatch"
	KindUserNotFound        AuthenticateKind = "user_not_found"
	KindUserNotAdded        AuthenticateKind = "user_not_added"
	KindUserAlreadyExists   AuthenticateKind = "user_already_exists"
	KindOfflineStoreFailure AuthenticateKind = "offline_store_failure"
)

// ProtocolError is one value of the wire-level error taxonomy.
// Cause is set only when Code is CodeAuthenticate.
type ProtocolError struct {
	Code  string           `json:"kind"`
	Cause AuthenticateKind `json:"cause,omitempty"`
}

const (
	CodeSerde            = "serde"
	CodeInvalidMessage   = "invalid_message"
	CodeMessage          = "message_error"
	CodeUserJoined       = "user_joined_error"
	CodeUserDisconnected = "user_disconnected_error"
	CodeUserNotExist     = "user_not_exist"
	CodeUserOffline      = "user_offline"
	CodeAuthenticate     = "authenticate_error"
)

// ErrWorkerPanic marks a recovered panic inside a supervised worker.
// Internal only, never part of the wire taxonomy.
var ErrWorkerPanic = fmt.Errorf("worker panic")

var (
	ErrSerde            = &ProtocolError{Code: CodeSerde}
	ErrInvalidMessage   = &ProtocolError{Code: CodeInvalidMessage}
	ErrMessage          = &ProtocolError{Code: CodeMessage}
	ErrUserJoined       = &ProtocolError{Code: CodeUserJoined}
	ErrUserDisconnected = &ProtocolError{Code: CodeUserDisconnected}
	ErrUserNotExist     = &ProtocolError{Code: CodeUserNotExist}
	ErrUserOffline      = &ProtocolError{Code: CodeUserOffline}
)

// AuthenticateError wraps a credential-layer failure kind into a
// protocol error.
func AuthenticateError(kind AuthenticateKind) *ProtocolError {
	return &ProtocolError{Code: CodeAuthenticate, Cause: kind}
}

func (e *ProtocolError) Error() string {
	if e.Code == CodeAuthenticate {
		return fmt.Sprintf("%s: %s", e.Code, e.Cause)
	}
	return e.Code
}

// Is matches by code so errors.Is works against the sentinel values,
// and by cause when the target carries one.
func (e *ProtocolError) Is(target error) bool {
	t, ok := target.(*ProtocolError)
	if !ok {
		return false
	}
	if e.Code != t.Code {
		return false
	}
	return t.Cause == "" || e.Cause == t.Cause
}

// AsProtocol coerces any error into a taxonomy value. Errors already in
// the taxonomy pass through; everything else degrades to a generic
// authenticate_error so nothing untyped ever reaches the wire.
func AsProtocol(err error) *ProtocolError {
	if err == nil {
		return nil
	}
	if pe, ok := err.(*ProtocolError); ok {
		return pe
	}
	return AuthenticateError(KindGenericFailure)
}

// MarshalJSON keeps the wire shape stable even if fields are added later.
func (e *ProtocolError) MarshalJSON() ([]byte, error) {
	type wire ProtocolError
	return json.Marshal((*wire)(e))
}

func (e *ProtocolError) UnmarshalJSON(data []byte) error {
	type wire ProtocolError
	return json.Unmarshal(data, (*wire)(e))
}

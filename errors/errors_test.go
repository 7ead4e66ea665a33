package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProtocolError_Is(t *testing.T) {
	req := require.New(t)

	// Sentinels match themselves
	req.ErrorIs(ErrInvalidMessage, ErrInvalidMessage)
	req.NotErrorIs(ErrInvalidMessage, ErrUserNotExist)

	// An authenticate_error matches a target with the same cause
	err := AuthenticateError(KindPasswordMismatch)
	req.ErrorIs(err, AuthenticateError(KindPasswordMismatch))
	req.NotErrorIs(err, AuthenticateError(KindUserNotFound))

	// And matches a cause-free authenticate_error target
	req.ErrorIs(err, &ProtocolError{Code: CodeAuthenticate})
}

func TestAsProtocol(t *testing.T) {
	req := require.New(t)

	req.Nil(AsProtocol(nil))

	// Taxonomy values pass through untouched
	req.Same(ErrUserNotExist, AsProtocol(ErrUserNotExist))

	// Anything else degrades to a generic authenticate_error
	coerced := AsProtocol(stderrors.New("disk on fire"))
	req.Equal(CodeAuthenticate, coerced.Code)
	req.Equal(KindGenericFailure, coerced.Cause)
}

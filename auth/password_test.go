package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-relay/errors"
)

func TestHashAndVerifyPassword(t *testing.T) {
	req := require.New(t)

	// Given a hashed password
	hash, err := HashPassword("S3cret!Enough")
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	t.Run("should verify the original password", func(t *testing.T) {
		match, err := VerifyPassword("S3cret!Enough", hash)
		require.NoError(t, err)
		require.True(t, match)
	})

	t.Run("should reject a different password", func(t *testing.T) {
		match, err := VerifyPassword("not-the-one", hash)
		require.NoError(t, err)
		require.False(t, match)
	})

	t.Run("two hashes of the same password differ by salt", func(t *testing.T) {
		other, err := HashPassword("S3cret!Enough")
		require.NoError(t, err)
		require.NotEqual(t, hash, other)
	})
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	req := require.New(t)

	// A broken stored hash is a hash failure, never a silent mismatch
	_, err := VerifyPassword("whatever", "not-an-encoded-hash")
	req.ErrorIs(err, errors.AuthenticateError(errors.KindHashFailure))
}

func TestValidateCredentials(t *testing.T) {
	t.Run("should accept a sane username and password", func(t *testing.T) {
		err := ValidateCredentials(CredentialsRequest{Username: "alice42", Password: "longenough"})
		require.NoError(t, err)
	})

	t.Run("should reject a short password", func(t *testing.T) {
		err := ValidateCredentials(CredentialsRequest{Username: "alice42", Password: "short"})
		require.ErrorIs(t, err, errors.AuthenticateError(errors.KindUserNotAdded))
	})

	t.Run("should reject a username with spaces", func(t *testing.T) {
		err := ValidateCredentials(CredentialsRequest{Username: "not a name", Password: "longenough"})
		require.ErrorIs(t, err, errors.AuthenticateError(errors.KindUserNotAdded))
	})
}

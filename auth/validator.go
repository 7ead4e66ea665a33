package auth

import (
	"github.com/go-playground/validator/v10"

	"chat-relay/errors"
)

var validate = validator.New()

// CredentialsRequest carries the fields of a create_user frame.
type CredentialsRequest struct {
	Username string `validate:"required,alphanum,min=3,max=32"`
	Password string `validate:"required,min=8,max=72"`
}

// ValidateCredentials checks business rules before any expensive
// cryptographic operation runs.
func ValidateCredentials(req CredentialsRequest) error {
	if err := validate.Struct(req); err != nil {
		return errors.AuthenticateError(errors.KindUserNotAdded)
	}
	return nil
}

//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/errors"
)

// UserRepository implements contract.CredentialStore on BadgerDB.
// Keys are "user:{username}"; values are JSON-encoded user records.
type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

var _ contract.CredentialStore = (*UserRepository)(nil)

// User is the stored account record.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

func userKey(username string) []byte {
	return []byte("user:" + username)
}

// Create hashes the password and persists the user.
// Done here to keep callers unaware of plain password handling.
func (r *UserRepository) Create(username, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	record := User{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return errors.AuthenticateError(errors.KindUserNotAdded)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		key := userKey(username)
		if _, err := txn.Get(key); err == nil {
			return errors.AuthenticateError(errors.KindUserAlreadyExists)
		} else if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.AuthenticateError(errors.KindStoreFailure)
		}
		return txn.Set(key, data)
	})
	if err != nil {
		if pe := new(errors.ProtocolError); stderrors.As(err, &pe) {
			return pe
		}
		return errors.AuthenticateError(errors.KindStoreFailure)
	}
	return nil
}

// Verify checks the given credentials against the stored record.
// A nil return means the credentials authenticate.
func (r *UserRepository) Verify(username, password string) error {
	record, err := r.get(username)
	if err != nil {
		return err
	}

	match, err := auth.VerifyPassword(password, record.PasswordHash)
	if err != nil {
		return err
	}
	if !match {
		return errors.AuthenticateError(errors.KindPasswordMismatch)
	}
	return nil
}

// Exists reports whether an account record is present, without reading
// its value.
func (r *UserRepository) Exists(username string) (bool, error) {
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(userKey(username))
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case stderrors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, errors.AuthenticateError(errors.KindStoreFailure)
	}
}

func (r *UserRepository) get(username string) (User, error) {
	var record User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	switch {
	case err == nil:
		return record, nil
	case stderrors.Is(err, badger.ErrKeyNotFound):
		return User{}, errors.AuthenticateError(errors.KindUserNotFound)
	default:
		return User{}, errors.AuthenticateError(errors.KindStoreFailure)
	}
}

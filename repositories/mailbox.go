//go:generate go run go.uber.org/mock/mockgen -source=mailbox.go -destination=../mocks/mock_mailbox_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
)

// MailboxRepository implements contract.OfflineMailbox on BadgerDB.
//
// The key is formatted as "off:{receiver}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two
//     messages arrive at the same nanosecond.
//
// The receiver segment is escaped so a name containing ":" can never
// alias another receiver's prefix.
type MailboxRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMailboxRepository(db *badger.DB, log *slog.Logger) *MailboxRepository {
	return &MailboxRepository{db: db, log: log}
}

var _ contract.OfflineMailbox = (*MailboxRepository)(nil)

type diskMessage struct {
	ID     string `json:"id"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
	SentAt int64  `json:"sent_at"` // unix nanoseconds
}

// receiverEscaper keeps the key's ":" separators unambiguous: an
// escaped receiver can never contain a bare ":", so one receiver's
// prefix is never a prefix of another's.
var receiverEscaper = strings.NewReplacer(`\`, `\\`, ":", `\:`)

func mailboxPrefix(receiver string) []byte {
	return []byte(fmt.Sprintf("off:%s:", receiverEscaper.Replace(receiver)))
}

// Store parks one message for an absent receiver.
func (m *MailboxRepository) Store(sender, receiver, text string) error {
	now := time.Now().UTC()
	key := fmt.Sprintf("%s%019d:%s", mailboxPrefix(receiver), now.UnixNano(), uuid.NewString())

	data, err := json.Marshal(diskMessage{
		ID:     uuid.NewString(),
		Sender: sender,
		Text:   text,
		SentAt: now.UnixNano(),
	})
	if err != nil {
		return errors.AuthenticateError(errors.KindOfflineStoreFailure)
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return errors.AuthenticateError(errors.KindOfflineStoreFailure)
	}
	return nil
}

// FetchOrdered returns every parked message for the receiver, oldest
// first. Thanks to the padded timestamp in the key a plain forward
// prefix scan yields them already sorted.
func (m *MailboxRepository) FetchOrdered(receiver string) ([]domain.StoredMessage, error) {
	var raw [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := mailboxPrefix(receiver)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				raw = append(raw, append([]byte(nil), val...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.AuthenticateError(errors.KindOfflineStoreFailure)
	}

	var decodeErr error
	messages := lo.Map(raw, func(val []byte, _ int) domain.StoredMessage {
		var disk diskMessage
		if err := json.Unmarshal(val, &disk); err != nil {
			decodeErr = err
			return domain.StoredMessage{}
		}
		return domain.StoredMessage{
			Sender:   disk.Sender,
			Receiver: receiver,
			Text:     disk.Text,
			SentAt:   time.Unix(0, disk.SentAt).UTC(),
		}
	})
	if decodeErr != nil {
		return nil, errors.AuthenticateError(errors.KindOfflineStoreFailure)
	}
	return messages, nil
}

// DeleteAll removes every parked message for the receiver in one batch.
func (m *MailboxRepository) DeleteAll(receiver string) error {
	var keys [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := mailboxPrefix(receiver)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return errors.AuthenticateError(errors.KindOfflineStoreFailure)
	}
	if len(keys) == 0 {
		return nil
	}

	batch := m.db.NewWriteBatch()
	defer batch.Cancel()
	for _, key := range keys {
		if err := batch.Delete(key); err != nil {
			return errors.AuthenticateError(errors.KindOfflineStoreFailure)
		}
	}
	if err := batch.Flush(); err != nil {
		return errors.AuthenticateError(errors.KindOfflineStoreFailure)
	}
	m.log.Debug(fmt.Sprintf("Dropped %d parked messages", len(keys)), "receiver", receiver)
	return nil
}

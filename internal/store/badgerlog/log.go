// Package badgerlog provides a store.MessageLog backed by BadgerDB.
//
// Keys are "msg:{id}" with the id zero padded to 20 digits so that the
// lexicographic key order equals insertion order. Ids come from a Badger
// sequence, values are CBOR encoded records.
package badgerlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"

	"github.com/vovakirdan/docify-community/internal/store"
)

const (
	messagePrefix  = "msg:"
	sequenceKey    = "seq:msg"
	sequenceLease  = 128
	maxPaddedIDKey = messagePrefix + "99999999999999999999"
)

var _ store.MessageLog = (*Log)(nil)

// record is the on-disk value. CreatedAt is kept as unix nanos so that
// the round trip is exact regardless of the CBOR time encoding mode.
type record struct {
	SenderID  string `cbor:"1,keyasint"`
	Text      string `cbor:"2,keyasint"`
	CreatedAt int64  `cbor:"3,keyasint"`
}

// Log implements store.MessageLog on top of a Badger database.
type Log struct {
	db  *badger.DB
	seq *badger.Sequence
}

// Open opens (or creates) a Badger database in dir.
func Open(dir string) (*Log, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return New(db)
}

// New wraps an already opened database. The Log owns db afterwards.
func New(db *badger.DB) (*Log, error) {
	seq, err := db.GetSequence([]byte(sequenceKey), sequenceLease)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("get sequence: %w", err)
	}
	return &Log{db: db, seq: seq}, nil
}

// Close releases the sequence lease and closes the database.
func (l *Log) Close() error {
	seqErr := l.seq.Release()
	dbErr := l.db.Close()
	return errors.Join(seqErr, dbErr)
}

// Append persists msg and sets msg.ID.
func (l *Log) Append(ctx context.Context, msg *store.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n, err := l.seq.Next()
	if err != nil {
		return fmt.Errorf("next id: %w", err)
	}
	// Sequences start at zero; ids start at one like SQLite rowids.
	id := int64(n) + 1

	value, err := cbor.Marshal(record{
		SenderID:  msg.SenderID,
		Text:      msg.Text,
		CreatedAt: msg.CreatedAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	err = l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(id), value)
	})
	if err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	msg.ID = id
	return nil
}

// Recent scans backwards from the newest key and returns messages oldest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]*store.Message, error) {
	messages := make([]*store.Message, 0)
	if limit <= 0 {
		return messages, nil
	}

	prefix := []byte(messagePrefix)
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(maxPaddedIDKey)); it.ValidForPrefix(prefix); it.Next() {
			if len(messages) == limit {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			var id int64
			if _, err := fmt.Sscanf(string(item.Key()[len(prefix):]), "%d", &id); err != nil {
				return fmt.Errorf("parse key %q: %w", item.Key(), err)
			}

			err := item.Value(func(value []byte) error {
				var rec record
				if err := cbor.Unmarshal(value, &rec); err != nil {
					return fmt.Errorf("decode message %d: %w", id, err)
				}
				messages = append(messages, &store.Message{
					ID:        id,
					SenderID:  rec.SenderID,
					Text:      rec.Text,
					CreatedAt: time.Unix(0, rec.CreatedAt).UTC(),
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan messages: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func messageKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", messagePrefix, id))
}

package banlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Key layout: "ban:<kind>:<identity>" -> JSON-encoded Record.
const (
	banKeyPrefix   = "ban:"
	restoreLockKey = "lock:restore"

	// restoreLockTTL bounds how long a crashed instance can hold the
	// restore guard.
	restoreLockTTL = 30 * time.Second
)

// BadgerDurable is the production DurableStore backed by BadgerDB.
// Writes are transactional and survive restarts; worker processes on
// the same host share the store directory.
type BadgerDurable struct {
	db *badger.DB
}

// NewBadgerDurable wraps an open badger database. The caller owns the
// database lifecycle when sharing it with other components; Close here
// closes it.
func NewBadgerDurable(db *badger.DB) *BadgerDurable {
	return &BadgerDurable{db: db}
}

// OpenBadger opens the ban database at dir with logging disabled.
func OpenBadger(dir string) (*BadgerDurable, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("banlist: open badger at %s: %w", dir, err)
	}
	return &BadgerDurable{db: db}, nil
}

func makeKey(kind Kind, value string) []byte {
	return []byte(banKeyPrefix + string(kind) + ":" + value)
}

func (b *BadgerDurable) Put(ctx context.Context, kind Kind, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("banlist: marshal record: %w", err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(makeKey(kind, rec.Value), data)
	})
	if err != nil {
		return fmt.Errorf("banlist: put %s/%s: %w", kind, rec.Value, err)
	}
	return nil
}

func (b *BadgerDurable) Delete(ctx context.Context, kind Kind, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(makeKey(kind, value))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("banlist: delete %s/%s: %w", kind, value, err)
	}
	return nil
}

func (b *BadgerDurable) Load(ctx context.Context, kind Kind) (map[string]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]Record)
	prefix := []byte(banKeyPrefix + string(kind) + ":")

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var rec Record
				if err := json.Unmarshal(val, &rec); err != nil {
					return fmt.Errorf("unmarshal %s: %w", item.Key(), err)
				}
				out[rec.Value] = rec
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("banlist: load %s: %w", kind, err)
	}
	return out, nil
}

// AcquireRestoreLock takes the sentinel restore key with a TTL. A held
// lock means another instance is mid-restore; callers retry until the
// context expires.
func (b *BadgerDurable) AcquireRestoreLock(ctx context.Context) (func(), error) {
	key := []byte(restoreLockKey)
	for {
		err := b.db.Update(func(txn *badger.Txn) error {
			_, err := txn.Get(key)
			if err == nil {
				return badger.ErrConflict
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			e := badger.NewEntry(key, []byte("1")).WithTTL(restoreLockTTL)
			return txn.SetEntry(e)
		})
		if err == nil {
			release := func() {
				_ = b.db.Update(func(txn *badger.Txn) error {
					return txn.Delete(key)
				})
			}
			return release, nil
		}
		if !errors.Is(err, badger.ErrConflict) {
			return nil, fmt.Errorf("banlist: acquire restore lock: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("banlist: restore lock held: %w", ctx.Err())
		case <-time.After(250 * time.Millisecond):
		}
	}
}

func (b *BadgerDurable) Close() error {
	return b.db.Close()
}

// Package repository provides the Badger-backed key-value store for
// queue, ledger, shuffle and history state.
package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/cockroachdb/errors"

	"github.com/torigoya/requestq/internal/domain/shuffle"
	"github.com/torigoya/requestq/internal/domain/song"
)

// ErrPersistence marks all storage failures. Callers branch with
// errors.Is; the store never retries internally.
var ErrPersistence = errors.New("persistence failure")

// Value keys. History entries are keyed by a monotonic sequence so
// iteration returns play order.
var (
	keyQueueState   = []byte("state/queue")
	keyBumpLedger   = []byte("state/ledger")
	keyShuffleState = []byte("state/shuffle")
	historyPrefix   = []byte("history/")
)

// Store is a Badger-backed repository.
type Store struct {
	db         *badger.DB
	historySeq *badger.Sequence
}

// Open opens the store at the given path. The path ":memory:" opens an
// in-memory store for tests.
func Open(path string) (*Store, error) {
	var opts badger.Options
	if path == ":memory:" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "opening store"), ErrPersistence)
	}

	seq, err := db.GetSequence([]byte("seq/history"), 100)
	if err != nil {
		_ = db.Close()
		return nil, errors.Mark(errors.Wrap(err, "opening history sequence"), ErrPersistence)
	}

	return &Store{db: db, historySeq: seq}, nil
}

// Close releases the store.
func (s *Store) Close() error {
	if err := s.historySeq.Release(); err != nil {
		return errors.Mark(err, ErrPersistence)
	}
	return s.db.Close()
}

// SaveQueueState persists the ordered queue contents.
func (s *Store) SaveQueueState(ctx context.Context, songs []song.Song) error {
	return s.setJSON(keyQueueState, songs)
}

// LoadQueueState returns the persisted queue contents in order.
// A missing key yields an empty queue.
func (s *Store) LoadQueueState(ctx context.Context) ([]song.Song, error) {
	songs := make([]song.Song, 0)
	if err := s.getJSON(keyQueueState, &songs); err != nil {
		return nil, err
	}
	return songs, nil
}

// SaveBumpLedger persists the per-user bump counts.
func (s *Store) SaveBumpLedger(ctx context.Context, counts map[string]int) error {
	return s.setJSON(keyBumpLedger, counts)
}

// LoadBumpLedger returns the persisted bump counts.
func (s *Store) LoadBumpLedger(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	if err := s.getJSON(keyBumpLedger, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

// SaveShuffleState persists the shuffle session state.
func (s *Store) SaveShuffleState(ctx context.Context, state shuffle.State) error {
	return s.setJSON(keyShuffleState, state)
}

// LoadShuffleState returns the persisted shuffle state. ok is false when
// no state has been saved yet.
func (s *Store) LoadShuffleState(ctx context.Context) (state shuffle.State, ok bool, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyShuffleState)
		if err != nil {
			return err
		}
		ok = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &state)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return shuffle.State{}, false, nil
	}
	if err != nil {
		return shuffle.State{}, false, errors.Mark(errors.Wrap(err, "loading shuffle state"), ErrPersistence)
	}
	return state, ok, nil
}

// AppendHistory records a played song.
func (s *Store) AppendHistory(ctx context.Context, played song.Song) error {
	n, err := s.historySeq.Next()
	if err != nil {
		return errors.Mark(errors.Wrap(err, "allocating history sequence"), ErrPersistence)
	}

	key := make([]byte, len(historyPrefix)+8)
	copy(key, historyPrefix)
	binary.BigEndian.PutUint64(key[len(historyPrefix):], n)
	return s.setJSON(key, played)
}

// History returns played songs in play order. A limit of zero returns
// everything.
func (s *Store) History(ctx context.Context, limit int) ([]song.Song, error) {
	result := make([]song.Song, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = historyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if limit > 0 && len(result) >= limit {
				break
			}
			var played song.Song
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &played)
			})
			if err != nil {
				return err
			}
			result = append(result, played)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "reading history"), ErrPersistence)
	}
	return result, nil
}

// setJSON writes a JSON-encoded value.
func (s *Store) setJSON(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "encoding value"), ErrPersistence)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return errors.Mark(errors.Wrap(err, "writing value"), ErrPersistence)
	}
	return nil
}

// getJSON reads a JSON-encoded value; a missing key leaves v untouched.
func (s *Store) getJSON(key []byte, v any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return errors.Mark(errors.Wrap(err, "reading value"), ErrPersistence)
	}
	return nil
}

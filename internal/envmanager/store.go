package envmanager

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// keyPrefix namespaces discovery records inside a badger.DB that can also
// hold internal/index's revalidation tokens, under a distinct prefix
// (SPEC_FULL.md §6.5).
const keyPrefix = "env:"

// LastUsedRateLimit matches the teacher's durable-write philosophy of
// throttling low-value repeated writes: a last_used update is skipped
// when the stored value is within this window.
const LastUsedRateLimit = time.Hour

// discoveryRecord is the small on-disk record spec.md §4.5 describes:
// the discovered interpreter plus a rate-limited last_used timestamp,
// stored under a caller-chosen key. The Store does not watch a working
// directory's files and never invalidates a record on its own; no code in
// this module calls the Store.
type discoveryRecord struct {
	Interpreter Interpreter `json:"interpreter"`
	LastUsed    int64       `json:"last_used"` // unix seconds
}

// Store wraps an already-open *badger.DB, the same pattern
// internal/index.Store uses for its revalidation tokens.
type Store struct {
	db *badger.DB
}

func NewStore(db *badger.DB) *Store {
	return &Store{db: db}
}

// Get returns the cached discovery record for key, if present.
func (s *Store) Get(key string) (Interpreter, time.Time, bool, error) {
	var rec discoveryRecord
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil || !found {
		return Interpreter{}, time.Time{}, false, err
	}
	return rec.Interpreter, time.Unix(rec.LastUsed, 0), true, nil
}

// Put stores interp as discovered at the given key with the current
// last_used timestamp, unconditionally (used on first discovery).
func (s *Store) Put(key string, interp Interpreter, lastUsed time.Time) error {
	rec := discoveryRecord{Interpreter: interp, LastUsed: lastUsed.Unix()}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+key), data)
	})
}

// Touch updates a record's last_used timestamp, skipping the write when
// the stored value is already within LastUsedRateLimit of now (spec.md
// §4.5: "last_used updates are rate-limited").
func (s *Store) Touch(key string, now time.Time) error {
	interp, lastUsed, ok, err := s.Get(key)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if now.Sub(lastUsed) < LastUsedRateLimit {
		return nil
	}
	return s.Put(key, interp, now)
}

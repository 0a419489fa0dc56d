package index

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// revalidationRecord is what the store keeps per package name: the raw
// bytes of the last successful version-index fetch plus the tokens needed
// to conditionally revalidate it.
type revalidationRecord struct {
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	Raw          []byte `json:"raw"`
}

// Store is the embedded revalidation token cache, a badger.DB keyed by
// normalized package name under the "idx:" prefix — grounded on
// jinterlante1206-AleutianLocal's services/trace/storage/badger, whose
// Open/OpenWithPath helpers this wraps. envmanager.Store can use the same
// underlying *badger.DB under a different key prefix.
type Store struct {
	db *badger.DB
}

const keyPrefix = "idx:"

// NewStore wraps an already-open badger.DB. cmd/pybun opens db once at
// process startup and hands it to index.NewStore; it does not call
// envmanager.NewStore.
func NewStore(db *badger.DB) *Store {
	return &Store{db: db}
}

// Get returns the cached revalidation record for name, or ok=false if none
// is stored.
func (s *Store) Get(name string) (record revalidationRecord, ok bool, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, getErr := txn.Get([]byte(keyPrefix + name))
		if getErr == badger.ErrKeyNotFound {
			return nil
		}
		if getErr != nil {
			return getErr
		}
		ok = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err != nil {
		return revalidationRecord{}, false, fmt.Errorf("index: reading revalidation record for %q: %w", name, err)
	}
	return record, ok, nil
}

// Put stores (or overwrites) the revalidation record for name.
func (s *Store) Put(name string, record revalidationRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("index: marshaling revalidation record for %q: %w", name, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+name), data)
	})
	if err != nil {
		return fmt.Errorf("index: storing revalidation record for %q: %w", name, err)
	}
	return nil
}

// SPDX-License-Identifier: MIT

package match

import (
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v4"
)

const recordKeyPrefix = "match:"

// BadgerStore persists match records in Badger so fingerprints survive
// daemon restarts. Records are stored as JSON under "match:<fp>".
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (or creates) the record database at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func (s *BadgerStore) Get(fp string) (*Record, bool, error) {
	key := []byte(recordKeyPrefix + fp)
	var out Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &out, true, nil
}

func (s *BadgerStore) Put(rec *Record) error {
	key := []byte(recordKeyPrefix + rec.Fingerprint)
	buf, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, buf)
	})
}

func (s *BadgerStore) All() ([]*Record, error) {
	var out []*Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var rec Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			out = append(out, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerStore) Delete(fp string) error {
	key := []byte(recordKeyPrefix + fp)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

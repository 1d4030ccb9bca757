/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package idempotency deduplicates caller-supplied event ids over a
// bounded time window using an embedded badger KV store. It backs the
// rotation engine's "exactly-once if the caller passes a play event id"
// contract without requiring a network dependency.
package idempotency

import (
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Store deduplicates keys seen within ttl of each other.
type Store struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens (or creates) a badger store rooted at dir.
func Open(dir string, ttl time.Duration) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{db: db, ttl: ttl}, nil
}

// Close releases the underlying badger database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SeenBefore records key if it has not been seen within the TTL window
// and reports whether it was already present (true means: this call is a
// duplicate, the caller should treat it as a no-op).
func (s *Store) SeenBefore(key string) (bool, error) {
	var alreadySeen bool

	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		switch err {
		case nil:
			alreadySeen = true
			return nil
		case badger.ErrKeyNotFound:
			entry := badger.NewEntry([]byte(key), []byte{1}).WithTTL(s.ttl)
			return txn.SetEntry(entry)
		default:
			return err
		}
	})
	if err != nil {
		return false, err
	}
	return alreadySeen, nil
}

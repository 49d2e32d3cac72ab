// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package cache

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const imageKeyPrefix = "image:"

// badgerRecord is the stored envelope for a ByteStore entry. The content
// type must survive restarts alongside the payload so images are re-served
// with the header they arrived with.
type badgerRecord struct {
	Payload     []byte `json:"payload"`
	ContentType string `json:"content_type"`
}

// BadgerStore is a BadgerDB-backed ByteStore. Entries persist across
// restarts, so a freshly started instance can serve last-known-good
// snapshots before it has fetched anything.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a BadgerDB at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Suppress BadgerDB internal logs
	// Snapshot payloads are small; keep value log files modest.
	opts.ValueLogFileSize = 64 << 20

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for image store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// NewBadgerStoreInMemory opens an in-memory BadgerDB, used in tests.
func NewBadgerStoreInMemory() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger db: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Get returns the stored payload for key.
func (s *BadgerStore) Get(key string) ([]byte, string, bool) {
	var record badgerRecord

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(imageKeyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err != nil {
		return nil, "", false
	}
	return record.Payload, record.ContentType, true
}

// Set stores payload for key, replacing any previous entry.
func (s *BadgerStore) Set(key string, payload []byte, contentType string) error {
	data, err := json.Marshal(badgerRecord{Payload: payload, ContentType: contentType})
	if err != nil {
		return fmt.Errorf("marshal image record: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(imageKeyPrefix+key), data)
	})
}

// Invalidate removes the entry for key. Missing keys are not an error.
func (s *BadgerStore) Invalidate(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(imageKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// Close flushes and closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

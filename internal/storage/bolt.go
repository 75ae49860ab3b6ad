// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"
)

// boltBucket holds every key this program stores.
var boltBucket = []byte("session")

// BoltStore keeps keys in a single bbolt bucket. bbolt takes an exclusive
// file lock, so only one process can hold the store open at a time.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens or creates the database at path.
func NewBoltStore(path string) (store *BoltStore, err error) {
	if path == "" {
		return nil, errors.New("storage: bolt backend requires a path")
	}
	if err = os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("storage: create directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("storage: open bolt %s: %w", path, err)
	}

	tx, err := db.Begin(true)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: begin: %w", err)
	}
	needRollback := true
	defer func() {
		if needRollback {
			_ = tx.Rollback()
			db.Close()
		}
	}()

	if _, err = tx.CreateBucketIfNotExists(boltBucket); err != nil {
		return nil, fmt.Errorf("storage: create bucket: %w", err)
	}

	needRollback = false
	if err = tx.Commit(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: commit: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Get returns the value for key.
func (s *BoltStore) Get(_ context.Context, key string) (string, error) {
	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(boltBucket).Get([]byte(key)); v != nil {
			// v is only valid for the life of the transaction.
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return "", wrapBolt(err)
	}
	if value == nil {
		return "", ErrNotFound
	}
	return string(value), nil
}

// Set stores value under key.
func (s *BoltStore) Set(_ context.Context, key, value string) error {
	return wrapBolt(s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), []byte(value))
	}))
}

// Delete removes key.
func (s *BoltStore) Delete(_ context.Context, key string) error {
	return wrapBolt(s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltBucket).Delete([]byte(key))
	}))
}

// Close releases the database file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func wrapBolt(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, berrors.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return fmt.Errorf("storage: bolt: %w", err)
}

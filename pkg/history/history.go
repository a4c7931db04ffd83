// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package history persists a record of completed recovery searches in a
// local BadgerDB store.
//
// Records never contain the recovered password. When a search succeeds the
// record carries a SHA-256 digest of the password, enough to tell "same
// password as last time" without keeping the plaintext on disk.
package history

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// recordPrefix namespaces search records inside the store.
const recordPrefix = "search/"

// Record describes one completed search.
type Record struct {
	ID          string        `json:"id"`
	StartedAt   time.Time     `json:"started_at"`
	Outcome     string        `json:"outcome"`
	Attempts    uint64        `json:"attempts"`
	Elapsed     time.Duration `json:"elapsed"`
	Oracle      string        `json:"oracle"`
	Fingerprint string        `json:"config_fingerprint"`

	// PasswordSHA256 is set only for found outcomes.
	PasswordSHA256 string `json:"password_sha256,omitempty"`
}

// NewRecord builds a record with a fresh id and timestamp. The password,
// when non-empty, is digested and discarded.
func NewRecord(outcome string, attempts uint64, elapsed time.Duration, oracleDesc, fingerprint, password string) Record {
	rec := Record{
		ID:          uuid.New().String(),
		StartedAt:   time.Now().Add(-elapsed),
		Outcome:     outcome,
		Attempts:    attempts,
		Elapsed:     elapsed,
		Oracle:      oracleDesc,
		Fingerprint: fingerprint,
	}
	if password != "" {
		sum := sha256.Sum256([]byte(password))
		rec.PasswordSHA256 = hex.EncodeToString(sum[:])
	}
	return rec
}

// Config holds store options.
type Config struct {
	// Path is the directory for the BadgerDB files.
	// Ignored when InMemory is true.
	Path string

	// InMemory disables disk persistence. Useful for tests.
	InMemory bool
}

// Store is a BadgerDB-backed history store.
//
// Thread Safety: Safe for concurrent use; BadgerDB transactions provide
// the isolation.
type Store struct {
	db *badger.DB
}

// Open creates or opens a history store.
func Open(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithLogger(nil)
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("history: opening store at %s: %w", cfg.Path, err)
	}
	return &Store{db: db}, nil
}

// Put persists one record.
func (s *Store) Put(rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("history: record has no id")
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("history: encoding record %s: %w", rec.ID, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(recordPrefix+rec.ID), payload)
	})
	if err != nil {
		return fmt.Errorf("history: storing record %s: %w", rec.ID, err)
	}
	return nil
}

// List returns all records, newest first.
func (s *Store) List() ([]Record, error) {
	var records []Record
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(recordPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec Record
				if err := json.Unmarshal(val, &rec); err != nil {
					return fmt.Errorf("history: decoding record: %w", err)
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	return records, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("history: closing store: %w", err)
	}
	return nil
}

// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// historyKeyPrefix namespaces exchange records inside the database.
const historyKeyPrefix = "hist/"

// BadgerConfig configures a BadgerStore.
type BadgerConfig struct {
	// Path is the directory for the database files. Ignored when
	// InMemory is true.
	Path string

	// InMemory keeps everything in RAM; data is lost on Close. Used
	// by tests and throwaway deployments.
	InMemory bool

	// SyncWrites forces an fsync per append. Default false: losing the
	// last exchange on a crash is acceptable for a history log.
	SyncWrites bool
}

// BadgerStore keeps exchanges in an embedded Badger database.
//
// # Description
//
// Each exchange is one key/value pair. Keys are
// "hist/<session>/<rfc3339nano>/<id>" so a prefix scan over a session
// yields exchanges in creation order without a secondary index; values
// are the JSON-encoded Exchange.
//
// # Thread Safety
//
// Safe for concurrent use; Badger transactions provide isolation.
type BadgerStore struct {
	db *badger.DB
}

// badgerSlogger adapts slog to Badger's logger interface so database
// internals land in the same log stream as everything else.
type badgerSlogger struct{}

func (badgerSlogger) Errorf(format string, args ...any) {
	slog.Error(fmt.Sprintf("badger: "+format, args...))
}

func (badgerSlogger) Warningf(format string, args ...any) {
	slog.Warn(fmt.Sprintf("badger: "+format, args...))
}

func (badgerSlogger) Infof(format string, args ...any) {
	slog.Debug(fmt.Sprintf("badger: "+format, args...))
}

func (badgerSlogger) Debugf(format string, args ...any) {
	slog.Debug(fmt.Sprintf("badger: "+format, args...))
}

// NewBadgerStore opens (creating if necessary) the database described
// by cfg.
func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerSlogger{})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	slog.Info("History store opened", "backend", "badger",
		"path", cfg.Path, "in_memory", cfg.InMemory)
	return &BadgerStore{db: db}, nil
}

// Append persists one exchange.
func (s *BadgerStore) Append(ctx context.Context, exchange Exchange) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := json.Marshal(exchange)
	if err != nil {
		return fmt.Errorf("failed to encode exchange: %w", err)
	}
	key := exchangeKey(exchange)

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return fmt.Errorf("failed to append exchange: %w", err)
	}
	return nil
}

// BySession returns the session's exchanges in creation order.
func (s *BadgerStore) BySession(ctx context.Context, sessionID string) ([]Exchange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := []byte(historyKeyPrefix + sessionID + "/")
	exchanges := []Exchange{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var exchange Exchange
				if err := json.Unmarshal(value, &exchange); err != nil {
					return fmt.Errorf("corrupt exchange record %q: %w",
						string(it.Item().Key()), err)
				}
				exchanges = append(exchanges, exchange)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read session history: %w", err)
	}
	return exchanges, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// exchangeKey builds the ordered key for an exchange. RFC3339Nano sorts
// lexicographically in time order for dates in the same era, which
// holds for server-assigned timestamps.
func exchangeKey(exchange Exchange) []byte {
	ts := time.Time(exchange.CreatedAt).UTC().Format(time.RFC3339Nano)
	return []byte(historyKeyPrefix + exchange.SessionID + "/" + ts + "/" + exchange.ID)
}

var _ Store = (*BadgerStore)(nil)

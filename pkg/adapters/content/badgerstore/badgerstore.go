// Package badgerstore keeps snippet payloads in an embedded Badger database.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v3"

	"github.com/wadjakorntonsri/go-snippet-bin/pkg/core/domain"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/ports"
)

// gcDiscardRatio is the stale fraction a value log file needs before it is rewritten.
const gcDiscardRatio = 0.5

// Options configures a Store.
type Options struct {
	// Dir is the database directory. Ignored when InMemory is set.
	Dir        string
	InMemory   bool
	SyncWrites bool
}

// Store implements ports.ContentStore on Badger.
type Store struct {
	db       *badger.DB
	inMemory bool
	logger   *slog.Logger
}

// Open opens (or creates) the Badger database described by opts.
func Open(opts Options, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Dir == "" && !opts.InMemory {
		return nil, fmt.Errorf("badger: dir is required")
	}

	bopts := badger.DefaultOptions(opts.Dir).
		WithInMemory(opts.InMemory).
		WithSyncWrites(opts.SyncWrites).
		WithLogger(&badgerLogger{logger: logger})
	if opts.InMemory {
		bopts = bopts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	logger.Info("badger content store opened", "dir", opts.Dir, "in_memory", opts.InMemory)
	return &Store{db: db, inMemory: opts.InMemory, logger: logger}, nil
}

// Put stores data under key and refuses to replace an existing payload.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("%w: empty key", domain.ErrInvalidKey)
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if err == nil {
			return domain.ErrContentExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set([]byte(key), data)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrContentExists), errors.Is(err, badger.ErrConflict):
		// A conflict means a concurrent transaction wrote the same key first
		return fmt.Errorf("%s: %w", key, domain.ErrContentExists)
	default:
		return fmt.Errorf("%w: put %s: %w", domain.ErrStorage, key, err)
	}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%s: %w", key, domain.ErrContentNotFound)
		}
		return nil, fmt.Errorf("%w: get %s: %w", domain.ErrStorage, key, err)
	}
	if value == nil {
		// Badger hands back nil for an empty value
		value = []byte{}
	}
	return value, nil
}

// Delete writes a tombstone; Badger treats deleting a missing key as success.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("%w: delete %s: %w", domain.ErrStorage, key, err)
	}
	return nil
}

// Compact runs value log GC until nothing is left to rewrite.
func (s *Store) Compact(ctx context.Context) error {
	if s.inMemory {
		return nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.RunValueLogGC(gcDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("badger: value log gc: %w", err)
		}
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Ensure interface compliance
var (
	_ ports.ContentStore = (*Store)(nil)
	_ ports.Compactor    = (*Store)(nil)
)

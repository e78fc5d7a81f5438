// Package badgerkv stores project records in an embedded BadgerDB.
//
// It suits single-process deployments that want durable local storage
// without a running database server. The in-memory mode is used by tests.
package badgerkv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgraph-io/badger/v4"

	"github.com/matzehuels/flowkeeper/pkg/kv"
)

// Config holds configuration for a BadgerDB-backed store.
type Config struct {
	// Path is the directory for database files. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in RAM. Data is lost on Close.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// Logger receives BadgerDB's internal messages and GC events.
	// If nil, BadgerDB logging is disabled.
	Logger *log.Logger

	// GCInterval is how often value log garbage collection runs.
	// Zero disables it.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum garbage ratio that triggers a rewrite.
	GCDiscardRatio float64
}

// DefaultConfig returns production defaults for a database at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts a charm logger to badger.Logger.
type badgerLogger struct{ l *log.Logger }

func (b badgerLogger) Errorf(format string, args ...any)   { b.l.Errorf(format, args...) }
func (b badgerLogger) Warningf(format string, args ...any) { b.l.Warnf(format, args...) }
func (b badgerLogger) Infof(format string, args ...any)    { b.l.Debugf(format, args...) }
func (b badgerLogger) Debugf(format string, args ...any)   { b.l.Debugf(format, args...) }

// Store implements kv.Store on top of a *badger.DB.
type Store struct {
	db     *badger.DB
	logger *log.Logger

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

var _ kv.Store = (*Store)(nil)

// Open opens (or creates) the database described by cfg and starts the
// garbage collector when configured.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badgerkv: path is required for a persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(badgerLogger{cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	s := &Store{db: db, logger: cfg.Logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.stop = make(chan struct{})
		s.done = make(chan struct{})
		go s.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return s, nil
}

// Get implements kv.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
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
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, false, nil
	case errors.Is(err, badger.ErrDBClosed):
		return nil, false, kv.ErrClosed
	case err != nil:
		return nil, false, fmt.Errorf("badger get %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements kv.Store.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	return s.wrap("set", key, err)
}

// Delete implements kv.Store. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	return s.wrap("delete", key, err)
}

func (s *Store) wrap(op, key string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrDBClosed):
		return kv.ErrClosed
	case errors.Is(err, badger.ErrConflict):
		return kv.Retryable(fmt.Errorf("badger %s %s: %w", op, key, err))
	}
	return fmt.Errorf("badger %s %s: %w", op, key, err)
}

// Close stops the garbage collector and closes the database.
func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		if s.stop != nil {
			close(s.stop)
			<-s.done
		}
		err = s.db.Close()
	})
	return err
}

func (s *Store) runGC(interval time.Duration, ratio float64) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			// ErrNoRewrite means there was nothing worth collecting.
			err := s.db.RunValueLogGC(ratio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) && s.logger != nil {
				s.logger.Warn("badger value log GC failed", "error", err)
			}
		}
	}
}

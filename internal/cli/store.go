package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/flowkeeper/pkg/config"
	"github.com/matzehuels/flowkeeper/pkg/errors"
	"github.com/matzehuels/flowkeeper/pkg/kv"
	"github.com/matzehuels/flowkeeper/pkg/kv/badgerkv"
	"github.com/matzehuels/flowkeeper/pkg/kv/mongokv"
	"github.com/matzehuels/flowkeeper/pkg/kv/postgreskv"
	"github.com/matzehuels/flowkeeper/pkg/kv/rediskv"
)

// openStore opens the storage backend selected by cfg. Network backends are
// announced with a spinner while connecting.
func openStore(ctx context.Context, cfg config.StorageConfig) (kv.Store, error) {
	logger := loggerFromContext(ctx)
	logger.Debug("opening store", "backend", cfg.Backend)

	var (
		store kv.Store
		err   error
	)
	switch cfg.Backend {
	case config.BackendFile, "":
		store, err = kv.NewFileStore(cfg.File.Dir)
	case config.BackendMemory:
		store = kv.NewMemoryStore()
	case config.BackendNull:
		store = kv.NewNullStore()
	case config.BackendBadger:
		bc := badgerkv.DefaultConfig(cfg.Badger.Path)
		bc.InMemory = cfg.Badger.InMemory
		bc.SyncWrites = cfg.Badger.SyncWrites
		bc.Logger = logger.WithPrefix("badger")
		store, err = badgerkv.Open(bc)
	case config.BackendRedis:
		store, err = connect(ctx, "redis "+cfg.Redis.Addr, func() (kv.Store, error) {
			return rediskv.Open(ctx, rediskv.Config{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
				TTL:      cfg.Redis.TTL.Duration,
			})
		})
	case config.BackendMongo:
		store, err = connect(ctx, "mongodb", func() (kv.Store, error) {
			return mongokv.Open(ctx, mongokv.Config{
				URI:        cfg.Mongo.URI,
				Database:   cfg.Mongo.Database,
				Collection: cfg.Mongo.Collection,
			})
		})
	case config.BackendPostgres:
		store, err = connect(ctx, "postgres", func() (kv.Store, error) {
			return postgreskv.Open(ctx, postgreskv.Config{DSN: cfg.Postgres.DSN, Table: cfg.Postgres.Table})
		})
	default:
		return nil, errors.New(errors.ErrCodeConfig, "unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "open %s store", cfg.Backend)
	}
	return store, nil
}

// connect runs open behind a spinner on stderr.
func connect(ctx context.Context, what string, open func() (kv.Store, error)) (kv.Store, error) {
	s := startSpinner(ctx, statusWriter(), fmt.Sprintf("Connecting to %s...", what))
	store, err := open()
	loggerFromContext(ctx).Debug("store connected", "store", what, "took", s.stop().Round(time.Millisecond), "ok", err == nil)
	return store, err
}

// Package mongokv stores project records in a MongoDB collection, one
// document per key.
package mongokv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/flowkeeper/pkg/kv"
)

// Defaults for database and collection names.
const (
	DefaultDatabase   = "flowkeeper"
	DefaultCollection = "records"
)

// Config configures the MongoDB connection.
type Config struct {
	URI        string
	Database   string
	Collection string
}

// record is the stored document.
type record struct {
	Key       string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Store implements kv.Store on a MongoDB collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ kv.Store = (*Store)(nil)

// Open connects to MongoDB and pings the primary.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", errors.Join(kv.ErrUnavailable, err))
	}
	return &Store{client: client, coll: client.Database(cfg.Database).Collection(cfg.Collection)}, nil
}

// Get implements kv.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var rec record
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrap("get", key, err)
	}
	return rec.Data, true, nil
}

// Set implements kv.Store as an upsert.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"_id": key},
		record{Key: key, Data: value, UpdatedAt: time.Now().UTC()},
		options.Replace().SetUpsert(true),
	)
	return wrap("set", key, err)
}

// Delete implements kv.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": key})
	return wrap("delete", key, err)
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.client.Disconnect(ctx)
	if errors.Is(err, mongo.ErrClientDisconnected) {
		return nil
	}
	return err
}

func wrap(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrClientDisconnected) {
		return kv.ErrClosed
	}
	err = fmt.Errorf("mongodb %s %s: %w", op, key, err)
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return kv.Retryable(err)
	}
	return err
}

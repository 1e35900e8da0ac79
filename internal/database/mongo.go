package database

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/rankrunner/rankrunner/internal/apperrors"
	"github.com/rankrunner/rankrunner/internal/config"
)

// ErrNotConfigured signals that no Mongo URI is set. Callers treat it as a
// cue to fall back to the in-memory repositories, not as a failure.
var ErrNotConfigured = apperrors.New(apperrors.CodeConfiguration, "mongo uri is not configured")

type MongoClient struct {
	client *mongo.Client
	db     *mongo.Database
}

var (
	connectMu sync.Mutex
	cached    *MongoClient
)

// Connect returns the process-wide Mongo handle, establishing it on first
// use. The handle is cached for the lifetime of the process; concurrent
// first calls are serialized so only one connection is ever dialed.
func Connect(ctx context.Context, cfg config.MongoConfig) (*MongoClient, error) {
	if cfg.URI == "" {
		return nil, ErrNotConfigured
	}

	connectMu.Lock()
	defer connectMu.Unlock()

	if cached != nil {
		return cached, nil
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(dialCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "failed to connect to mongo")
	}

	if err := client.Ping(dialCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "failed to ping mongo")
	}

	cached = &MongoClient{
		client: client,
		db:     client.Database(cfg.Database),
	}

	return cached, nil
}

func (c *MongoClient) Database() *mongo.Database {
	return c.db
}

func (c *MongoClient) Collection(name string) *mongo.Collection {
	return c.db.Collection(name)
}

func (c *MongoClient) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// Package mongodb opens the shared MongoDB connection used by the shop, order
// and review repositories.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Options configures Connect. Zero fields take the package defaults.
type Options struct {
	URI                    string
	Database               string
	AppName                string
	MaxPoolSize            uint64
	MinPoolSize            uint64
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.AppName == "" {
		o.AppName = "india-food-court"
	}
	if o.MaxPoolSize == 0 {
		o.MaxPoolSize = 50
	}
	if o.MinPoolSize > o.MaxPoolSize {
		o.MinPoolSize = o.MaxPoolSize
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	if o.ServerSelectionTimeout <= 0 {
		o.ServerSelectionTimeout = 5 * time.Second
	}
	return o
}

func (o Options) clientOptions() *options.ClientOptions {
	return options.Client().
		ApplyURI(o.URI).
		SetAppName(o.AppName).
		SetConnectTimeout(o.ConnectTimeout).
		SetServerSelectionTimeout(o.ServerSelectionTimeout).
		SetMaxPoolSize(o.MaxPoolSize).
		SetMinPoolSize(o.MinPoolSize)
}

// Connect dials, pings the primary and returns the configured database.
func Connect(ctx context.Context, opts Options) (*mongo.Database, error) {
	opts = opts.withDefaults()
	if opts.URI == "" || opts.Database == "" {
		return nil, errors.New("mongodb: uri and database are required")
	}

	client, err := mongo.Connect(ctx, opts.clientOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client.Database(opts.Database), nil
}

// Ping is the readiness probe used by /health and the gRPC health status.
func Ping(ctx context.Context, db *mongo.Database) error {
	return db.Client().Ping(ctx, readpref.Primary())
}

func Disconnect(ctx context.Context, db *mongo.Database) error {
	if db == nil {
		return nil
	}
	return db.Client().Disconnect(ctx)
}

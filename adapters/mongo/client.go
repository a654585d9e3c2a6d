package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	defaultDatabase    = "jurubahasa"
	defaultMaxPoolSize = 10
	defaultTimeout     = 10 * time.Second
)

// ClientConfig holds the connection settings. Only URI is required.
type ClientConfig struct {
	URI         string
	Database    string
	MaxPoolSize uint64
	// Timeout bounds connecting and the initial ping.
	Timeout time.Duration
}

// Client wraps the MongoDB client and the session database
type Client struct {
	*mongo.Client
	Database *mongo.Database
	logger   *zap.Logger
}

// NewClient connects and verifies the connection with a ping against the
// primary.
func NewClient(ctx context.Context, config ClientConfig, logger *zap.Logger) (*Client, error) {
	if config.URI == "" {
		return nil, fmt.Errorf("mongodb uri is required")
	}
	if config.Database == "" {
		config.Database = defaultDatabase
	}
	if config.MaxPoolSize == 0 {
		config.MaxPoolSize = defaultMaxPoolSize
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	clientOptions := options.Client().
		ApplyURI(config.URI).
		SetAppName("jurubahasa").
		SetMaxPoolSize(config.MaxPoolSize).
		SetMinPoolSize(1).
		SetMaxConnIdleTime(30 * time.Minute).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(config.Timeout)

	ctx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Connected to MongoDB", zap.String("database", config.Database))

	return &Client{
		Client:   client,
		Database: client.Database(config.Database),
		logger:   logger,
	}, nil
}

// Ping reports whether the primary is reachable. It backs the storage
// part of the health check.
func (c *Client) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx, readpref.Primary())
}

// Close closes the MongoDB connection
func (c *Client) Close(ctx context.Context) error {
	if err := c.Client.Disconnect(ctx); err != nil {
		c.logger.Error("Failed to disconnect from MongoDB", zap.Error(err))
		return err
	}
	c.logger.Info("Disconnected from MongoDB")
	return nil
}

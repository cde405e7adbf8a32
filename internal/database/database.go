// Package database manages the MongoDB connection and collections.
package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Client wraps mongo.Client and exposes the application's collections.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect establishes and verifies the MongoDB connection.
func Connect(ctx context.Context, uri, dbName string) (*Client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Client{client: client, db: client.Database(dbName)}, nil
}

// Users returns the users collection.
func (c *Client) Users() *mongo.Collection {
	return c.db.Collection("users")
}

// Products returns the products collection.
func (c *Client) Products() *mongo.Collection {
	return c.db.Collection("products")
}

// Orders returns the limit_orders collection.
func (c *Client) Orders() *mongo.Collection {
	return c.db.Collection("limit_orders")
}

// Messages returns the messages collection.
func (c *Client) Messages() *mongo.Collection {
	return c.db.Collection("messages")
}

// Close disconnects from MongoDB.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// indexModels returns the index specs per collection. Keys use bson.D:
// the driver rejects multi-key maps for ordered key specs, and compound
// index key order is significant.
func indexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		// Email is globally unique; student IDs are unique when present
		// (sparse, social-login accounts register without one).
		"users": {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "student_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
		},
		"products": {
			{Keys: bson.D{{Key: "category_key", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
		"limit_orders": {
			{Keys: bson.D{{Key: "sector_key", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
		"messages": {
			{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
	}
}

// CreateIndexes ensures the unique and query-supporting indexes exist.
func (c *Client) CreateIndexes(ctx context.Context) error {
	for name, models := range indexModels() {
		if _, err := c.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}
	return nil
}

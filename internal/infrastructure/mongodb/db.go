// Package mongodb stores users and notes in MongoDB. Field names follow the
// documents the service historically wrote, so existing collections load as-is.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/ErlanBelekov/hdnotes/internal/infrastructure/lazy"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

const (
	defaultDatabase = "hdnotes"
	connectTimeout  = 10 * time.Second

	usersCollection = "users"
	notesCollection = "notes"
)

func NewClient(ctx context.Context, uri string, maxPoolSize uint64) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(maxPoolSize).
		SetServerSelectionTimeout(5 * time.Second).
		SetSocketTimeout(45 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// Connector is the process-wide client handle, dialed on first use.
type Connector struct {
	res    *lazy.Resource[*mongo.Client]
	dbName string
}

func NewConnector(uri string, maxPoolSize uint64) (*Connector, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("parse mongo uri: %w", err)
	}
	dbName := cs.Database
	if dbName == "" {
		dbName = defaultDatabase
	}

	return &Connector{
		dbName: dbName,
		res: lazy.New(func(ctx context.Context) (*mongo.Client, error) {
			return NewClient(ctx, uri, maxPoolSize)
		}, func(c *mongo.Client) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return c.Disconnect(ctx)
		}, connectTimeout),
	}, nil
}

func (c *Connector) Collection(ctx context.Context, name string) (*mongo.Collection, error) {
	client, err := c.res.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	return client.Database(c.dbName).Collection(name), nil
}

func (c *Connector) Ping(ctx context.Context) error {
	client, err := c.res.Get(ctx)
	if err != nil {
		return err
	}
	return client.Ping(ctx, nil)
}

func (c *Connector) Close() error {
	return c.res.Close()
}

// EnsureIndexes creates the unique email index and the per-owner note index.
func (c *Connector) EnsureIndexes(ctx context.Context) error {
	users, err := c.Collection(ctx, usersCollection)
	if err != nil {
		return err
	}
	_, err = users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "googleId", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "otpExpires", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	notes, err := c.Collection(ctx, notesCollection)
	if err != nil {
		return err
	}
	_, err = notes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create note indexes: %w", err)
	}
	return nil
}

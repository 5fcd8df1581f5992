// Package mongostore is the MongoDB backend of the status store.
//
// Importing it registers the mongodb:// and mongodb+srv:// schemes with
// store.Connect.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/3leaps/eae-utils/pkg/model"
	"github.com/3leaps/eae-utils/pkg/store"
)

const (
	// defaultDatabase matches the MongoDB drivers' fallback when the URI has no path.
	defaultDatabase = "test"

	pingTimeout     = 10 * time.Second
	forceCloseGrace = time.Second
)

func init() {
	store.Register(Open, "mongodb", "mongodb+srv")
}

// Connection wraps a connected *mongo.Client.
type Connection struct {
	client *mongo.Client
	dbName string
}

// Open connects to uri and verifies the deployment answers a ping.
func Open(ctx context.Context, uri string) (store.Connection, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("parse mongodb uri: %w", err)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &Connection{client: client, dbName: databaseName(cs)}, nil
}

func databaseName(cs *connstring.ConnString) string {
	if cs == nil || cs.Database == "" {
		return defaultDatabase
	}
	return cs.Database
}

// DefaultDatabase returns the database named in the connection URI.
func (c *Connection) DefaultDatabase() store.Database {
	return &Database{db: c.client.Database(c.dbName)}
}

func (c *Connection) Close(ctx context.Context, force bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if force {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, forceCloseGrace)
		defer cancel()
	}
	if err := c.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongodb: %w", err)
	}
	return nil
}

// Database wraps a *mongo.Database.
type Database struct {
	db *mongo.Database
}

func (d *Database) Name() string {
	return d.db.Name()
}

func (d *Database) Collection(name string) (store.Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	return &Collection{coll: d.db.Collection(name)}, nil
}

// Collection wraps a *mongo.Collection holding status documents.
type Collection struct {
	coll *mongo.Collection
}

// FindOneAndUpdate upserts doc under key and returns the updated document.
// The store-assigned _id is not part of model.Status and is dropped on decode.
func (c *Collection) FindOneAndUpdate(ctx context.Context, key model.Key, doc model.Status) (model.Status, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	res := c.coll.FindOneAndUpdate(ctx, filterFor(key), bson.M{"$set": doc}, opts)

	var out model.Status
	if err := res.Decode(&out); err != nil {
		return model.Status{}, fmt.Errorf("find one and update %s: %w", c.coll.Name(), err)
	}
	return out, nil
}

func filterFor(key model.Key) bson.D {
	return bson.D{
		{Key: "ip", Value: key.IP},
		{Key: "port", Value: key.Port},
	}
}

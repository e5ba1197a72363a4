// MongoDB backend.

package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is a Store over a MongoDB database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// OpenMongo connects to uri and verifies the connection with a ping.
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	if database == "" {
		database = DefaultDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return &MongoStore{client: client, db: client.Database(database)}, nil
}

// FindOne implements Store.
func (m *MongoStore) FindOne(ctx context.Context, collection string, filter Filter, out any) error {
	err := m.db.Collection(collection).FindOne(ctx, bson.M(filter)).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

// InsertOne implements Store.
func (m *MongoStore) InsertOne(ctx context.Context, collection string, doc any) error {
	_, err := m.db.Collection(collection).InsertOne(ctx, doc)
	return err
}

// UpdateOne implements Store.
func (m *MongoStore) UpdateOne(ctx context.Context, collection string, filter Filter, set Set) error {
	res, err := m.db.Collection(collection).UpdateOne(ctx, bson.M(filter), bson.M{"$set": bson.M(set)})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Close implements Store.
func (m *MongoStore) Close() error {
	return m.client.Disconnect(context.Background())
}

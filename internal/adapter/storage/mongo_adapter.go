package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rl1809/pantry-tracker/internal/port"
)

type mongoDocument struct {
	Key      string `bson:"_id"`
	Quantity int    `bson:"quantity"`
}

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

// MongoAdapter maps each collection to a MongoDB collection of
// {_id: key, quantity: n} documents.
type MongoAdapter struct {
	db *mongo.Database
}

func NewMongoAdapter(db *mongo.Database) *MongoAdapter {
	return &MongoAdapter{db: db}
}

func (m *MongoAdapter) GetDocument(ctx context.Context, collection, key string) (port.Document, bool, error) {
	var doc mongoDocument
	err := m.db.Collection(collection).FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return port.Document{}, false, nil
	}
	if err != nil {
		return port.Document{}, false, fmt.Errorf("failed to get document: %w", err)
	}

	return port.Document{Key: doc.Key, Data: port.DocumentData{Quantity: doc.Quantity}}, true, nil
}

func (m *MongoAdapter) SetDocument(ctx context.Context, collection, key string, data port.DocumentData) error {
	opts := options.Replace().SetUpsert(true)
	_, err := m.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": key},
		mongoDocument{Key: key, Quantity: data.Quantity}, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

func (m *MongoAdapter) DeleteDocument(ctx context.Context, collection, key string) error {
	if _, err := m.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func (m *MongoAdapter) ListDocuments(ctx context.Context, collection string) ([]port.Document, error) {
	cursor, err := m.db.Collection(collection).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to scan collection: %w", err)
	}

	var found []mongoDocument
	if err := cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}

	docs := make([]port.Document, 0, len(found))
	for _, doc := range found {
		docs = append(docs, port.Document{Key: doc.Key, Data: port.DocumentData{Quantity: doc.Quantity}})
	}
	return docs, nil
}

func (m *MongoAdapter) IncrementQuantity(ctx context.Context, collection, key string) (int, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc mongoDocument
	err := m.db.Collection(collection).FindOneAndUpdate(ctx,
		bson.M{"_id": key},
		bson.M{"$inc": bson.M{"quantity": 1}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("failed to increment quantity: %w", err)
	}
	return doc.Quantity, nil
}

func (m *MongoAdapter) DecrementQuantity(ctx context.Context, collection, key string) (int, bool, error) {
	coll := m.db.Collection(collection)

	var doc mongoDocument
	err := coll.FindOneAndUpdate(ctx,
		bson.M{"_id": key, "quantity": bson.M{"$gt": 1}},
		bson.M{"$inc": bson.M{"quantity": -1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == nil {
		return doc.Quantity, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, false, fmt.Errorf("failed to decrement quantity: %w", err)
	}

	// Nothing above 1: delete the last unit if it is still there.
	result, err := coll.DeleteOne(ctx, bson.M{"_id": key, "quantity": bson.M{"$lte": 1}})
	if err != nil {
		return 0, false, fmt.Errorf("failed to delete last unit: %w", err)
	}
	return 0, result.DeletedCount > 0, nil
}

func (m *MongoAdapter) Ping(ctx context.Context) error {
	return m.db.Client().Ping(ctx, nil)
}

// Close disconnects the underlying client.
func (m *MongoAdapter) Close(ctx context.Context) error {
	return m.db.Client().Disconnect(ctx)
}

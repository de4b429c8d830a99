package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rentme-app/internal/app/persist"
)

const defaultCollection = "client_state"

// KV keeps each persisted store snapshot as one document keyed by its storage key.
type KV struct {
	col *mongo.Collection
}

var _ persist.Storage = (*KV)(nil)

type kvDocument struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func NewKV(db *mongo.Database, collection string) *KV {
	if collection == "" {
		collection = defaultCollection
	}
	return &KV{col: db.Collection(collection)}
}

func (s *KV) GetItem(ctx context.Context, key string) ([]byte, bool, error) {
	var doc kvDocument
	err := s.col.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("mongo: get %s: %w", key, err)
	}
	return doc.Value, true, nil
}

func (s *KV) SetItem(ctx context.Context, key string, value []byte) error {
	update := bson.M{"$set": bson.M{"value": value, "updated_at": time.Now().UTC()}}
	_, err := s.col.UpdateByID(ctx, key, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo: set %s: %w", key, err)
	}
	return nil
}

func (s *KV) RemoveItem(ctx context.Context, key string) error {
	if _, err := s.col.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("mongo: remove %s: %w", key, err)
	}
	return nil
}

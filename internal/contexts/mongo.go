package contexts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/jarbasai/jarbas/pkg/models"
)

const contextCollection = "user_contexts"

type contextDocument struct {
	Phone     string           `bson:"phone"`
	History   []models.Message `bson:"history"`
	UpdatedAt time.Time        `bson:"updated_at"`
}

// MongoStore persists conversation histories in a MongoDB collection, one
// document per user.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore creates a context store on the given database and ensures the
// lookup index exists.
func NewMongoStore(ctx context.Context, db *mongo.Database) (*MongoStore, error) {
	coll := db.Collection(contextCollection)

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "phone", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create context index: %w", err)
	}

	return &MongoStore{coll: coll}, nil
}

// Read loads the user's history, keeps the most recent limit messages, and
// repairs any tool-call pairing broken by the truncation.
func (s *MongoStore) Read(ctx context.Context, userKey string, limit int) ([]models.Message, error) {
	var doc contextDocument
	err := s.coll.FindOne(ctx, bson.M{"phone": userKey}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []models.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read context: %w", err)
	}

	history := doc.History
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return RepairOrphanToolMessages(history), nil
}

// Save upserts the user's document with the full history.
func (s *MongoStore) Save(ctx context.Context, userKey string, history []models.Message) error {
	update := bson.M{"$set": bson.M{
		"phone":      userKey,
		"history":    history,
		"updated_at": time.Now().UTC(),
	}}
	_, err := s.coll.UpdateOne(ctx, bson.M{"phone": userKey}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save context: %w", err)
	}
	return nil
}

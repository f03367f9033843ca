package groups

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

const groupCollection = "group_members"

// MongoCache persists group snapshots in MongoDB so the membership cache is
// shared across instances and survives restarts.
type MongoCache struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoCache creates a membership cache on the given database and ensures
// its indexes exist.
func NewMongoCache(ctx context.Context, db *mongo.Database) (*MongoCache, error) {
	coll := db.Collection(groupCollection)

	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create group indexes: %w", err)
	}

	return &MongoCache{coll: coll, now: time.Now}, nil
}

// Members returns the stored snapshot if it has not expired. An expired
// snapshot is treated as a miss and left for the next Put to replace.
func (c *MongoCache) Members(ctx context.Context, groupID string) (models.GroupSnapshot, bool, error) {
	filter := bson.M{
		"group_id":   groupID,
		"expires_at": bson.M{"$gt": c.now().UTC()},
	}

	var snapshot models.GroupSnapshot
	err := c.coll.FindOne(ctx, filter).Decode(&snapshot)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.GroupSnapshot{}, false, nil
	}
	if err != nil {
		return models.GroupSnapshot{}, false, fmt.Errorf("failed to read group snapshot: %w", err)
	}
	return snapshot, true, nil
}

// Put upserts the snapshot with a fresh expiry.
func (c *MongoCache) Put(ctx context.Context, snapshot models.GroupSnapshot, ttl time.Duration) error {
	now := c.now().UTC()
	snapshot.CapturedAt = now
	snapshot.ExpiresAt = now.Add(ttl)

	update := bson.M{"$set": snapshot}
	_, err := c.coll.UpdateOne(ctx, bson.M{"group_id": snapshot.GroupID}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save group snapshot: %w", err)
	}
	return nil
}

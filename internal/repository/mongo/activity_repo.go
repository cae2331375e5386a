package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ActivityRepository struct {
	collection *mongo.Collection
}

func NewActivityRepository(client *mongo.Client, database, collection string) *ActivityRepository {
	return &ActivityRepository{
		collection: client.Database(database).Collection(collection),
	}
}

// EnsureIndexes creates the timestamp and type indexes used by Recent.
func (r *ActivityRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "timestamp", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("creating activity indexes: %w", err)
	}
	return nil
}

func (r *ActivityRepository) Insert(ctx context.Context, entry *domain.ActivityLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("inserting activity log: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. An empty entryType
// matches every type.
func (r *ActivityRepository) Recent(ctx context.Context, limit int, entryType string) ([]*domain.ActivityLog, error) {
	filter := bson.M{}
	if entryType != "" {
		filter["type"] = entryType
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("finding activity logs: %w", err)
	}
	defer cursor.Close(ctx)

	logs := make([]*domain.ActivityLog, 0, limit)
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("decoding activity logs: %w", err)
	}
	return logs, nil
}

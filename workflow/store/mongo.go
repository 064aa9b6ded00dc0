package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "github.com/sweetpotato0/mapshock/errors"
	"github.com/sweetpotato0/mapshock/workflow"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore archives reports in MongoDB.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// MongoConfig holds MongoDB connection configuration
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// mongoReport is the stored document. The report itself is kept as its JSON
// encoding so the document does not depend on bson tags.
type mongoReport struct {
	ID        string    `bson:"_id"`
	Success   bool      `bson:"success"`
	Payload   string    `bson:"payload"`
	CreatedAt time.Time `bson:"created_at"`
}

// NewMongoStore connects to MongoDB and prepares the collection.
func NewMongoStore(ctx context.Context, config *MongoConfig) (*MongoStore, error) {
	if config == nil {
		config = MongoConfigFromEnv()
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	store := &MongoStore{
		client:     client,
		collection: client.Database(config.Database).Collection(config.Collection),
	}
	_, err = store.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return store, nil
}

// Save implements workflow.ReportStore.
func (s *MongoStore) Save(ctx context.Context, report *workflow.Report) error {
	raw, err := encode(report)
	if err != nil {
		return err
	}
	doc := mongoReport{
		ID:        report.SessionID,
		Success:   report.Success,
		Payload:   string(raw),
		CreatedAt: report.Timestamp,
	}
	_, err = s.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save report to MongoDB: %w", err)
	}
	return nil
}

// Load implements workflow.ReportStore.
func (s *MongoStore) Load(ctx context.Context, sessionID string) (*workflow.Report, error) {
	var doc mongoReport
	err := s.collection.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("report %s: %w", sessionID, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	return decode([]byte(doc.Payload))
}

// Delete removes a report.
func (s *MongoStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": sessionID}); err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

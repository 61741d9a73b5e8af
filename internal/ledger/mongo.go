package ledger

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bcryptcrack/internal/models"
)

// MongoSink inserts one document per result into a collection.
type MongoSink struct {
	client *mongo.Client
	coll   *mongo.Collection
	runID  string
}

func DialMongo(ctx context.Context, uri, database, collection, runID string) (*MongoSink, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoSink{
		client: client,
		coll:   client.Database(database).Collection(collection),
		runID:  runID,
	}, nil
}

func (s *MongoSink) Append(ctx context.Context, r models.CrackResult) error {
	_, err := s.coll.InsertOne(ctx, NewDocument(s.runID, r))
	return err
}

func (s *MongoSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

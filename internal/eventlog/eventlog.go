// Package eventlog archives every verified webhook event with the outcome of
// its processing, so failed deliveries can be found and replayed by hand.
package eventlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pmgasset/nomadtech/internal/payment"
	"github.com/pmgasset/nomadtech/internal/reconcile"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "webhook_events"

var ErrEventNotFound = errors.New("webhook event not found")

type Entry struct {
	EventID     string            `bson:"_id" json:"event_id"`
	Type        string            `bson:"type" json:"type"`
	Outcome     reconcile.Outcome `bson:"outcome" json:"outcome"`
	Error       string            `bson:"error,omitempty" json:"error,omitempty"`
	Attempts    int               `bson:"attempts" json:"attempts"`
	CreatedAt   time.Time         `bson:"created_at" json:"created_at"`
	ReceivedAt  time.Time         `bson:"received_at" json:"received_at"`
	ProcessedAt time.Time         `bson:"processed_at" json:"processed_at"`
}

// Recorder is implemented by Archive and Noop.
type Recorder interface {
	Record(ctx context.Context, evt *payment.Event, outcome reconcile.Outcome, procErr error) error
}

func Connect(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(20)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

type Archive struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewArchive(db *mongo.Database) *Archive {
	return &Archive{collection: db.Collection(collectionName), now: time.Now}
}

// CreateIndexes supports listing failed events by recency.
func (a *Archive) CreateIndexes(ctx context.Context) error {
	_, err := a.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "outcome", Value: 1}, {Key: "received_at", Value: -1}}},
		{Keys: bson.D{{Key: "type", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Record upserts the entry for evt. Redeliveries of the same event id update
// the outcome and increment the attempt counter.
func (a *Archive) Record(ctx context.Context, evt *payment.Event, outcome reconcile.Outcome, procErr error) error {
	now := a.now().UTC()
	errText := ""
	if procErr != nil {
		errText = procErr.Error()
	}

	filter := bson.M{"_id": evt.ID}
	update := bson.M{
		"$set": bson.M{
			"type":         string(evt.Type),
			"outcome":      outcome,
			"error":        errText,
			"received_at":  now,
			"processed_at": now,
		},
		"$setOnInsert": bson.M{"created_at": now},
		"$inc":         bson.M{"attempts": 1},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := a.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to record webhook event: %w", err)
	}
	return nil
}

func (a *Archive) Get(ctx context.Context, eventID string) (*Entry, error) {
	var entry Entry
	err := a.collection.FindOne(ctx, bson.M{"_id": eventID}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook event: %w", err)
	}
	return &entry, nil
}

// Failed lists the most recent events whose processing failed.
func (a *Archive) Failed(ctx context.Context, limit int64) ([]Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "received_at", Value: -1}}).SetLimit(limit)
	cur, err := a.collection.Find(ctx, bson.M{"outcome": reconcile.OutcomeFailed}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed events: %w", err)
	}
	defer cur.Close(ctx)

	var entries []Entry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return entries, nil
}

func (a *Archive) Ping(ctx context.Context) error {
	return a.collection.Database().Client().Ping(ctx, nil)
}

func (a *Archive) Close(ctx context.Context) error {
	return a.collection.Database().Client().Disconnect(ctx)
}

// Noop discards entries when no archive is configured.
type Noop struct{}

func (Noop) Record(context.Context, *payment.Event, reconcile.Outcome, error) error {
	return nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hyperjump/manabu/internal/models"
)

const tenantsCollection = "users"

// MongoStore implements RecordStore with one document per tenant, appended with $push.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects to uri and pings the server before returning.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(tenantsCollection),
	}, nil
}

// push appends values to one array field of the tenant document, creating it if needed.
func (s *MongoStore) push(ctx context.Context, tenantID string, update bson.M) error {
	if tenantID == "" {
		return ErrEmptyTenant
	}
	_, err := s.collection.UpdateOne(ctx, bson.M{"_id": tenantID}, update, options.Update().SetUpsert(true))
	return err
}

// AppendDocuments pushes document records onto the tenant document.
func (s *MongoStore) AppendDocuments(ctx context.Context, tenantID string, docs []models.DocumentRecord) error {
	if len(docs) == 0 {
		return nil
	}
	return s.push(ctx, tenantID, bson.M{"$push": bson.M{"documents": bson.M{"$each": docs}}})
}

// AppendInteraction pushes one answered question and bumps last_interacted_at.
func (s *MongoStore) AppendInteraction(ctx context.Context, tenantID string, rec models.InteractionRecord) error {
	if rec.Sources == nil {
		rec.Sources = []string{}
	}
	return s.push(ctx, tenantID, bson.M{
		"$push": bson.M{"chat_history": rec},
		"$max":  bson.M{"last_interacted_at": rec.Timestamp},
	})
}

// AppendQuizScore pushes one quiz outcome and bumps last_interacted_at.
func (s *MongoStore) AppendQuizScore(ctx context.Context, tenantID string, rec models.QuizScoreRecord) error {
	return s.push(ctx, tenantID, bson.M{
		"$push": bson.M{"quiz_scores": rec},
		"$max":  bson.M{"last_interacted_at": rec.Timestamp},
	})
}

// Tenant returns the tenant document; missing arrays are returned empty.
func (s *MongoStore) Tenant(ctx context.Context, tenantID string) (*models.TenantRecord, error) {
	if tenantID == "" {
		return nil, ErrEmptyTenant
	}
	rec := emptyRecord(tenantID)
	err := s.collection.FindOne(ctx, bson.M{"_id": tenantID}).Decode(rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return emptyRecord(tenantID), nil
	}
	if err != nil {
		return nil, err
	}
	if rec.Documents == nil {
		rec.Documents = []models.DocumentRecord{}
	}
	if rec.ChatHistory == nil {
		rec.ChatHistory = []models.InteractionRecord{}
	}
	if rec.QuizScores == nil {
		rec.QuizScores = []models.QuizScoreRecord{}
	}
	return rec, nil
}

// ResetTenant empties the tenant's arrays and keeps the document itself.
func (s *MongoStore) ResetTenant(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return ErrEmptyTenant
	}
	_, err := s.collection.UpdateOne(ctx, bson.M{"_id": tenantID}, bson.M{"$set": bson.M{
		"documents":    []models.DocumentRecord{},
		"chat_history": []models.InteractionRecord{},
		"quiz_scores":  []models.QuizScoreRecord{},
	}})
	return err
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

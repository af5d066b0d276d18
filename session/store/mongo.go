package store

import (
	"context"
	"fmt"
	"time"

	"github.com/sweetpotato0/mcpx-agents/message"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps conversation items as documents ordered by seq.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// MongoConfig holds MongoDB connection configuration.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// DefaultMongoConfig returns default MongoDB configuration.
func DefaultMongoConfig() *MongoConfig {
	return &MongoConfig{
		URI:        "mongodb://localhost:27017",
		Database:   "mcpx",
		Collection: "conversation_items",
	}
}

type mongoItem struct {
	ConversationID string    `bson:"conversation_id"`
	Seq            int64     `bson:"seq"`
	Role           string    `bson:"role"`
	Payload        string    `bson:"payload"`
	CreatedAt      time.Time `bson:"created_at"`
}

// NewMongoStore connects to MongoDB and creates the ordering index.
func NewMongoStore(ctx context.Context, config *MongoConfig) (*MongoStore, error) {
	if config == nil {
		config = DefaultMongoConfig()
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	store := &MongoStore{
		client:     client,
		collection: client.Database(config.Database).Collection(config.Collection),
	}

	index := mongo.IndexModel{
		Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "seq", Value: 1}},
	}
	if _, err := store.collection.Indexes().CreateOne(connectCtx, index); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return store, nil
}

// Load returns the conversation in insertion order.
func (s *MongoStore) Load(ctx context.Context, conversationID string) ([]*message.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cursor, err := s.collection.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	defer cursor.Close(ctx)

	var msgs []*message.Message
	for cursor.Next(ctx) {
		var item mongoItem
		if err := cursor.Decode(&item); err != nil {
			return nil, fmt.Errorf("failed to decode conversation item: %w", err)
		}
		msg, err := message.Unmarshal([]byte(item.Payload))
		if err != nil {
			return nil, fmt.Errorf("failed to decode conversation item: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return msgs, nil
}

// Append inserts the items with increasing sequence numbers.
func (s *MongoStore) Append(ctx context.Context, conversationID string, msgs ...*message.Message) error {
	if err := validateID(conversationID); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	now := time.Now()
	base := now.UnixNano()
	docs := make([]any, 0, len(msgs))
	for i, msg := range msgs {
		payload, err := message.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal conversation item: %w", err)
		}
		docs = append(docs, mongoItem{
			ConversationID: conversationID,
			Seq:            base + int64(i),
			Role:           string(msg.Role),
			Payload:        string(payload),
			CreatedAt:      now,
		})
	}

	if _, err := s.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return fmt.Errorf("failed to insert conversation items: %w", err)
	}
	return nil
}

// Clear deletes all items of the conversation.
func (s *MongoStore) Clear(ctx context.Context, conversationID string) error {
	if _, err := s.collection.DeleteMany(ctx, bson.M{"conversation_id": conversationID}); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

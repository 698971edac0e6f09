package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps vectors in a MongoDB collection and ranks them client
// side, which suits the small indexes of validated configs.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

type mongoDoc struct {
	ID        string    `bson:"_id"`
	Document  string    `bson:"document"`
	Metadata  Metadata  `bson:"metadata"`
	Vector    []float32 `bson:"vector"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d mongoDoc) entry() Entry {
	return Entry{ID: d.ID, Document: d.Document, Metadata: d.Metadata, Vector: d.Vector}
}

// NewMongoStore connects to MongoDB and returns a store over the collection.
func NewMongoStore(ctx context.Context, uri, database, collection string, logger *slog.Logger) (*MongoStore, error) {
	if database == "" {
		database = "configgen"
	}
	if collection == "" {
		collection = defaultTable
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_index"),
	}, nil
}

func (s *MongoStore) Name() string { return BackendMongoDB }

func (s *MongoStore) Upsert(ctx context.Context, e Entry) error {
	doc := mongoDoc{
		ID:        e.ID,
		Document:  e.Document,
		Metadata:  e.Metadata,
		Vector:    e.Vector,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": e.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongodb upsert: %w", err)
	}
	return nil
}

func (s *MongoStore) Query(ctx context.Context, vec []float32, k int) ([]Match, error) {
	cursor, err := s.collection.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []Entry
	for cursor.Next(ctx) {
		var doc mongoDoc
		if err := cursor.Decode(&doc); err != nil {
			s.logger.Warn("skipping undecodable index document", "error", err)
			continue
		}
		entries = append(entries, doc.entry())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongodb cursor: %w", err)
	}
	return rank(entries, vec, k)
}

func (s *MongoStore) Get(ctx context.Context, id string) (Entry, bool, error) {
	var doc mongoDoc
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("mongodb get: %w", err)
	}
	return doc.entry(), true, nil
}

func (s *MongoStore) Count(ctx context.Context) (int, error) {
	n, err := s.collection.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("mongodb count: %w", err)
	}
	return int(n), nil
}

func (s *MongoStore) DeleteAll(ctx context.Context) error {
	if _, err := s.collection.DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("mongodb delete: %w", err)
	}
	return nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

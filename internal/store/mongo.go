package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	setsCollection = "sets"
	kvCollection   = "kv"
)

// Mongo stores sets as one document per member and key/values as one
// document per key.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

type setMember struct {
	ID      string    `bson:"_id"`
	Key     string    `bson:"key"`
	Member  string    `bson:"member"`
	AddedAt time.Time `bson:"added_at"`
}

type kvEntry struct {
	ID        string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// ConnectMongo connects, pings the primary and ensures indexes.
func ConnectMongo(ctx context.Context, uri, database string, logger *slog.Logger) (*Mongo, error) {
	if logger == nil {
		logger = slog.Default()
	}
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	m := &Mongo{client: client, db: client.Database(database), logger: logger.With("component", "store")}
	if _, err := m.db.Collection(setsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "key", Value: 1}},
	}); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create index: %w", err)
	}
	m.logger.Info("connected to mongodb", "database", database)
	return m, nil
}

func memberID(key, member string) string {
	return key + "\x00" + member
}

func (m *Mongo) Add(ctx context.Context, key, member string) error {
	doc := setMember{ID: memberID(key, member), Key: key, Member: member, AddedAt: time.Now().UTC()}
	_, err := m.db.Collection(setsCollection).UpdateOne(ctx,
		bson.M{"_id": doc.ID},
		bson.M{"$setOnInsert": doc},
		options.Update().SetUpsert(true),
	)
	return err
}

func (m *Mongo) Remove(ctx context.Context, key, member string) error {
	_, err := m.db.Collection(setsCollection).DeleteOne(ctx, bson.M{"_id": memberID(key, member)})
	return err
}

func (m *Mongo) Members(ctx context.Context, key string) ([]string, error) {
	cursor, err := m.db.Collection(setsCollection).Find(ctx, bson.M{"key": key},
		options.Find().SetSort(bson.D{{Key: "member", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []setMember
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Member)
	}
	return out, nil
}

func (m *Mongo) Get(ctx context.Context, key string) (string, bool, error) {
	var entry kvEntry
	err := m.db.Collection(kvCollection).FindOne(ctx, bson.M{"_id": key}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

func (m *Mongo) Set(ctx context.Context, key, value string) error {
	_, err := m.db.Collection(kvCollection).UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": value, "updated_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	return err
}

// Health pings the primary.
func (m *Mongo) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	m.logger.Info("disconnecting from mongodb")
	return m.client.Disconnect(ctx)
}

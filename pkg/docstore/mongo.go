package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func Connect(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

// MongoStore implements Store on a MongoDB database. Subscribe needs a
// replica set (change streams).
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (m *MongoStore) GetDocument(ctx context.Context, collection, id string, out any) error {
	err := m.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
		return fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	return nil
}

func (m *MongoStore) QueryDocuments(ctx context.Context, collection string, filter Filter, out any, opts ...QueryOption) error {
	o := collectOptions(opts)
	findOpts := options.Find()
	if o.sortField != "" {
		dir := 1
		if o.descending {
			dir = -1
		}
		findOpts.SetSort(bson.D{{Key: o.sortField, Value: dir}})
	}
	if o.limit > 0 {
		findOpts.SetLimit(o.limit)
	}

	cursor, err := m.db.Collection(collection).Find(ctx, toFilter(filter), findOpts)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", collection, err)
	}
	return nil
}

func (m *MongoStore) InsertDocument(ctx context.Context, collection, id string, doc any) error {
	d, err := toDocument(doc)
	if err != nil {
		return err
	}
	d["_id"] = id

	if _, err := m.db.Collection(collection).InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s/%s", ErrDuplicate, collection, id)
		}
		return fmt.Errorf("failed to insert %s/%s: %w", collection, id, err)
	}
	return nil
}

func (m *MongoStore) SetFields(ctx context.Context, collection, id string, fields Fields) error {
	update := bson.M{"$set": bson.M(fields)}
	opts := options.Update().SetUpsert(true)

	_, err := m.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, update, opts)
	if err != nil {
		return fmt.Errorf("failed to set fields on %s/%s: %w", collection, id, err)
	}
	return nil
}

func (m *MongoStore) AtomicIncrement(ctx context.Context, collection, id string, inc Increments) error {
	deltas := bson.M{}
	for field, delta := range inc {
		deltas[field] = delta
	}
	update := bson.M{"$inc": deltas}
	opts := options.Update().SetUpsert(true)

	_, err := m.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, update, opts)
	if err != nil {
		return fmt.Errorf("failed to increment %s/%s: %w", collection, id, err)
	}
	return nil
}

type changeDoc struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID any `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument bson.Raw `bson:"fullDocument"`
}

func (m *MongoStore) Subscribe(ctx context.Context, collection string, filter Filter, onChange func(ChangeEvent)) (*Subscription, error) {
	match := bson.D{{Key: "operationType", Value: bson.D{{Key: "$in", Value: bson.A{"insert", "update", "replace"}}}}}
	for field, value := range filter {
		match = append(match, bson.E{Key: "fullDocument." + field, Value: value})
	}
	pipeline := mongo.Pipeline{{{Key: "$match", Value: match}}}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	subCtx, cancel := context.WithCancel(ctx)
	stream, err := m.db.Collection(collection).Watch(subCtx, pipeline, opts)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to watch %s: %w", collection, err)
	}

	sub := newSubscription(cancel)
	go func() {
		defer stream.Close(context.Background())

		for stream.Next(subCtx) {
			var ev changeDoc
			if err := stream.Decode(&ev); err != nil {
				sub.finish(fmt.Errorf("failed to decode change on %s: %w", collection, err))
				return
			}
			onChange(ChangeEvent{
				Operation: ev.OperationType,
				ID:        fmt.Sprint(ev.DocumentKey.ID),
				document:  ev.FullDocument,
			})
		}

		err := stream.Err()
		if subCtx.Err() != nil {
			err = nil
		}
		sub.finish(err)
	}()

	return sub, nil
}

// EnsureUniqueIndex creates a unique index on field if it does not exist yet.
func (m *MongoStore) EnsureUniqueIndex(ctx context.Context, collection, field string) error {
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := m.db.Collection(collection).Indexes().CreateOne(ctx, index); err != nil {
		return fmt.Errorf("failed to create index %s.%s: %w", collection, field, err)
	}
	return nil
}

func (m *MongoStore) Database() *mongo.Database {
	return m.db
}

func toFilter(f Filter) bson.M {
	if f == nil {
		return bson.M{}
	}
	return bson.M(f)
}

func toDocument(doc any) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var d bson.M
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return d, nil
}

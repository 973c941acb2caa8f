package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"plantmaint/models"
)

// mongoPollInterval paces Subscribe when the server has no change streams
// (standalone deployments).
const mongoPollInterval = 5 * time.Second

// MongoStore is the Store backed by MongoDB.
type MongoStore struct {
	client  *mongo.Client
	db      *mongo.Database
	now     func() time.Time
	indexes sync.Map
}

// ConnectMongo connects to uri and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping error: %w", err)
	}

	log.WithField("database", database).Info("✅ Connected to MongoDB")

	return &MongoStore{client: client, db: client.Database(database), now: time.Now}, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// idFilter matches either a generated ObjectID or a caller-chosen string id.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": oid}
	}
	return bson.M{"_id": id}
}

func toRecord(doc bson.M) Record {
	var id string
	switch v := doc["_id"].(type) {
	case primitive.ObjectID:
		id = v.Hex()
	case string:
		id = v
	default:
		id = fmt.Sprint(v)
	}
	fields := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		if dt, ok := v.(primitive.DateTime); ok {
			fields[k] = dt.Time().UTC()
			continue
		}
		fields[k] = v
	}
	return Record{ID: id, Fields: fields}
}

func (s *MongoStore) stamped(fields map[string]interface{}) bson.M {
	doc := bson.M(copyFields(fields))
	now := s.now()
	doc[models.FieldCreatedAt] = now
	doc[models.FieldUpdatedAt] = now
	return doc
}

func insertedID(res *mongo.InsertOneResult) string {
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprint(res.InsertedID)
}

// Create inserts a document with a generated ObjectID.
func (s *MongoStore) Create(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	res, err := s.db.Collection(collection).InsertOne(ctx, s.stamped(fields))
	if err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	return insertedID(res), nil
}

func (s *MongoStore) ensureUniqueIndex(ctx context.Context, collection, field string) error {
	key := collection + "." + field
	if _, done := s.indexes.Load(key); done {
		return nil
	}
	_, err := s.db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create unique index on %s: %w", key, err)
	}
	s.indexes.Store(key, struct{}{})
	return nil
}

// CreateUnique relies on a unique index over uniqueField.
func (s *MongoStore) CreateUnique(ctx context.Context, collection, uniqueField string, fields map[string]interface{}) (string, error) {
	if err := s.ensureUniqueIndex(ctx, collection, uniqueField); err != nil {
		return "", err
	}
	res, err := s.db.Collection(collection).InsertOne(ctx, s.stamped(fields))
	if mongo.IsDuplicateKeyError(err) {
		return "", ErrAlreadyExists
	}
	if err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	return insertedID(res), nil
}

// Set upserts the document with id.
func (s *MongoStore) Set(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	doc := bson.M(copyFields(fields))
	doc[models.FieldUpdatedAt] = s.now()
	_, err := s.db.Collection(collection).ReplaceOne(ctx, idFilter(id), doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to set %s/%s: %w", collection, id, err)
	}
	return nil
}

// Get fetches one document.
func (s *MongoStore) Get(ctx context.Context, collection, id string) (*Record, error) {
	var doc bson.M
	err := s.db.Collection(collection).FindOne(ctx, idFilter(id)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	rec := toRecord(doc)
	return &rec, nil
}

var mongoOps = map[Op]string{
	OpLess:         "$lt",
	OpLessEqual:    "$lte",
	OpGreater:      "$gt",
	OpGreaterEqual: "$gte",
}

func mongoFilter(preds []Predicate) (bson.M, error) {
	if len(preds) == 0 {
		return bson.M{}, nil
	}
	conds := make([]bson.M, 0, len(preds))
	for _, p := range preds {
		if p.Op == OpEqual {
			conds = append(conds, bson.M{p.Field: p.Value})
			continue
		}
		op, ok := mongoOps[p.Op]
		if !ok {
			return nil, fmt.Errorf("unsupported operator %q", p.Op)
		}
		conds = append(conds, bson.M{p.Field: bson.M{op: p.Value}})
	}
	return bson.M{"$and": conds}, nil
}

// Query finds matching documents.
func (s *MongoStore) Query(ctx context.Context, collection string, preds []Predicate, order *OrderBy) ([]Record, error) {
	filter, err := mongoFilter(preds)
	if err != nil {
		return nil, err
	}
	opts := options.Find()
	if order != nil {
		dir := 1
		if order.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: order.Field, Value: dir}})
	}

	cursor, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", collection, err)
	}
	records := make([]Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, toRecord(doc))
	}
	return records, nil
}

// Update sets fields on an existing document.
func (s *MongoStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	set := bson.M(copyFields(fields))
	set[models.FieldUpdatedAt] = s.now()
	res, err := s.db.Collection(collection).UpdateOne(ctx, idFilter(id), bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a document.
func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.Collection(collection).DeleteOne(ctx, idFilter(id))
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Subscribe re-runs the query whenever the collection changes. Change
// streams need a replica set; without one it falls back to polling.
func (s *MongoStore) Subscribe(ctx context.Context, collection string, preds []Predicate, order *OrderBy) (<-chan []Record, error) {
	first, err := s.Query(ctx, collection, preds, order)
	if err != nil {
		return nil, err
	}
	ch := make(chan []Record, 1)
	ch <- first

	stream, watchErr := s.db.Collection(collection).Watch(ctx, mongo.Pipeline{})
	if watchErr != nil {
		log.WithError(watchErr).WithField("collection", collection).Info("change streams unavailable, polling")
	}

	go func() {
		defer close(ch)
		if stream != nil {
			defer stream.Close(context.Background())
		}

		var ticker *time.Ticker
		if stream == nil {
			ticker = time.NewTicker(mongoPollInterval)
			defer ticker.Stop()
		}

		for {
			if stream != nil {
				if !stream.Next(ctx) {
					if ctx.Err() == nil {
						log.WithError(stream.Err()).WithField("collection", collection).Warn("change stream closed")
					}
					return
				}
			} else {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}

			records, err := s.Query(ctx, collection, preds, order)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.WithError(err).WithField("collection", collection).Warn("failed to refresh subscription")
				continue
			}
			select {
			case ch <- records:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

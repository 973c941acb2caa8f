package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMongoFilter(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	filter, err := mongoFilter([]Predicate{
		Where("sector", OpEqual, "TI"),
		Where("createdAt", OpGreaterEqual, start),
	})
	require.NoError(t, err)
	assert.Equal(t, bson.M{"$and": []bson.M{
		{"sector": "TI"},
		{"createdAt": bson.M{"$gte": start}},
	}}, filter)

	empty, err := mongoFilter(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = mongoFilter([]Predicate{{Field: "x", Op: "!="}})
	assert.Error(t, err)
}

func TestToRecordConvertsIDsAndDates(t *testing.T) {
	oid := primitive.NewObjectID()
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := toRecord(bson.M{
		"_id":       oid,
		"name":      "pump",
		"createdAt": primitive.NewDateTimeFromTime(when),
	})
	assert.Equal(t, oid.Hex(), rec.ID)
	assert.NotContains(t, rec.Fields, "_id")
	assert.Equal(t, when, rec.Fields["createdAt"])

	rec = toRecord(bson.M{"_id": "user-1"})
	assert.Equal(t, "user-1", rec.ID)
}

func TestIDFilter(t *testing.T) {
	oid := primitive.NewObjectID()
	assert.Equal(t, bson.M{"_id": oid}, idFilter(oid.Hex()))
	assert.Equal(t, bson.M{"_id": "user-1"}, idFilter("user-1"))
}

func TestConnectMongo_BadURI(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	store, err := ConnectMongo(ctx, "mongodb://bad:uri", "plantmaint_test")
	assert.Error(t, err)
	assert.Nil(t, store)
}

// Integration test (requires running MongoDB)
func TestMongoStore_Integration(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	store, err := ConnectMongo(ctx, uri, "plantmaint_test")
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}
	defer store.Close()
	coll := "orders_" + primitive.NewObjectID().Hex()
	defer store.db.Collection(coll).Drop(context.Background())

	id, err := store.CreateUnique(ctx, coll, "orderNumber", map[string]interface{}{"orderNumber": "OS-1", "sector": "TI"})
	require.NoError(t, err)
	_, err = store.CreateUnique(ctx, coll, "orderNumber", map[string]interface{}{"orderNumber": "OS-1"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	require.NoError(t, store.Update(ctx, coll, id, map[string]interface{}{"sector": "Produção"}))
	rec, err := store.Get(ctx, coll, id)
	require.NoError(t, err)
	assert.Equal(t, "Produção", rec.Fields["sector"])
	assert.IsType(t, time.Time{}, rec.Fields["createdAt"])

	recs, err := store.Query(ctx, coll, []Predicate{Where("sector", OpEqual, "Produção")}, &OrderBy{Field: "createdAt", Desc: true})
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	require.NoError(t, store.Delete(ctx, coll, id))
	_, err = store.Get(ctx, coll, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

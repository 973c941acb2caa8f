package db

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned by CreateUnique when another record
	// already holds the unique field's value.
	ErrAlreadyExists = errors.New("record already exists")
)

// Op is a comparison operator usable in a Predicate.
type Op string

const (
	OpEqual        Op = "=="
	OpLess         Op = "<"
	OpLessEqual    Op = "<="
	OpGreater      Op = ">"
	OpGreaterEqual Op = ">="
)

// Predicate compares a record field against a value. Predicates passed
// together are ANDed.
type Predicate struct {
	Field string
	Op    Op
	Value interface{}
}

// Where builds a Predicate.
func Where(field string, op Op, value interface{}) Predicate {
	return Predicate{Field: field, Op: op, Value: value}
}

// OrderBy sorts query results by one field.
type OrderBy struct {
	Field string
	Desc  bool
}

// Record is a stored document: an opaque id and its named fields. The
// store sets createdAt on create and updatedAt on every write.
type Record struct {
	ID     string
	Fields map[string]interface{}
}

// Store is the record store the application persists through. Each
// snapshot delivered by Subscribe is the complete current result set and
// replaces the previous one. The channel is closed when ctx ends.
type Store interface {
	Create(ctx context.Context, collection string, fields map[string]interface{}) (string, error)
	// CreateUnique inserts only if no record in collection has the same
	// value for uniqueField. The check and the insert are one atomic step.
	CreateUnique(ctx context.Context, collection, uniqueField string, fields map[string]interface{}) (string, error)
	// Set creates or replaces the record with the given id.
	Set(ctx context.Context, collection, id string, fields map[string]interface{}) error
	Get(ctx context.Context, collection, id string) (*Record, error)
	Query(ctx context.Context, collection string, preds []Predicate, order *OrderBy) ([]Record, error)
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, collection, id string) error
	Subscribe(ctx context.Context, collection string, preds []Predicate, order *OrderBy) (<-chan []Record, error)
	Close() error
}

func copyFields(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		out[k] = v
	}
	return out
}

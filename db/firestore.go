package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"plantmaint/models"
)

// FirestoreStore is the Store backed by Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore initializes a Firestore client through the Firebase
// Admin SDK. An empty credentialsPath uses application default credentials
// (or the emulator when FIRESTORE_EMULATOR_HOST is set).
func NewFirestoreStore(ctx context.Context, projectID, credentialsPath string) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	config := &firebase.Config{ProjectID: projectID}
	app, err := firebase.NewApp(ctx, config, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firestore client: %w", err)
	}

	log.WithField("project", projectID).Info("✅ Connected to Firestore")

	return &FirestoreStore{client: client}, nil
}

// Close closes the Firestore client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func stamped(fields map[string]interface{}, created bool) map[string]interface{} {
	doc := copyFields(fields)
	if created {
		doc[models.FieldCreatedAt] = firestore.ServerTimestamp
	}
	doc[models.FieldUpdatedAt] = firestore.ServerTimestamp
	return doc
}

// Create adds a document with a generated id.
func (s *FirestoreStore) Create(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	ref := s.client.Collection(collection).NewDoc()
	if _, err := ref.Create(ctx, stamped(fields, true)); err != nil {
		return "", fmt.Errorf("failed to create %s document: %w", collection, err)
	}
	return ref.ID, nil
}

// CreateUnique checks uniqueField and creates the document inside one
// transaction, so two concurrent creates cannot both succeed.
func (s *FirestoreStore) CreateUnique(ctx context.Context, collection, uniqueField string, fields map[string]interface{}) (string, error) {
	coll := s.client.Collection(collection)
	ref := coll.NewDoc()

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docs, err := tx.Documents(coll.Where(uniqueField, "==", fields[uniqueField]).Limit(1)).GetAll()
		if err != nil {
			return err
		}
		if len(docs) > 0 {
			return ErrAlreadyExists
		}
		return tx.Create(ref, stamped(fields, true))
	})
	if errors.Is(err, ErrAlreadyExists) {
		return "", ErrAlreadyExists
	}
	if err != nil {
		return "", fmt.Errorf("failed to create %s document: %w", collection, err)
	}
	return ref.ID, nil
}

// Set creates or overwrites the document with id.
func (s *FirestoreStore) Set(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, stamped(fields, false)); err != nil {
		return fmt.Errorf("failed to set %s/%s: %w", collection, id, err)
	}
	return nil
}

// Get retrieves a document by id.
func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (*Record, error) {
	doc, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	return &Record{ID: doc.Ref.ID, Fields: doc.Data()}, nil
}

func (s *FirestoreStore) query(collection string, preds []Predicate, order *OrderBy) firestore.Query {
	q := s.client.Collection(collection).Query
	for _, p := range preds {
		q = q.Where(p.Field, string(p.Op), p.Value)
	}
	if order != nil {
		dir := firestore.Asc
		if order.Desc {
			dir = firestore.Desc
		}
		q = q.OrderBy(order.Field, dir)
	}
	return q
}

// Query runs a filtered, optionally ordered query.
func (s *FirestoreStore) Query(ctx context.Context, collection string, preds []Predicate, order *OrderBy) ([]Record, error) {
	iter := s.query(collection, preds, order).Documents(ctx)
	defer iter.Stop()

	records := []Record{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate %s: %w", collection, err)
		}
		records = append(records, Record{ID: doc.Ref.ID, Fields: doc.Data()})
	}
	return records, nil
}

// Update merges fields into an existing document.
func (s *FirestoreStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	updates := make([]firestore.Update, 0, len(fields)+1)
	for k, v := range fields {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}
	updates = append(updates, firestore.Update{Path: models.FieldUpdatedAt, Value: firestore.ServerTimestamp})

	_, err := s.client.Collection(collection).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	return nil
}

// Delete removes a document. The document must exist.
func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.Collection(collection).Doc(id).Delete(ctx, firestore.Exists)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// Subscribe streams query snapshots until ctx is cancelled.
func (s *FirestoreStore) Subscribe(ctx context.Context, collection string, preds []Predicate, order *OrderBy) (<-chan []Record, error) {
	it := s.query(collection, preds, order).Snapshots(ctx)
	ch := make(chan []Record, 1)

	go func() {
		defer close(ch)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && status.Code(err) != codes.Canceled {
					log.WithError(err).WithField("collection", collection).Warn("snapshot listener stopped")
				}
				return
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				log.WithError(err).WithField("collection", collection).Warn("failed to read snapshot")
				continue
			}
			records := make([]Record, 0, len(docs))
			for _, doc := range docs {
				records = append(records, Record{ID: doc.Ref.ID, Fields: doc.Data()})
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

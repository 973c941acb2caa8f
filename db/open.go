package db

import (
	"context"
	"fmt"

	"plantmaint/config"
)

// Open connects the backend selected by cfg.Store.Backend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store.Backend {
	case config.BackendFirestore:
		return NewFirestoreStore(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsPath)
	case config.BackendMongo:
		return ConnectMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	case config.BackendMemory:
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"plantmaint/apperr"
	"plantmaint/db"
	"plantmaint/models"
)

// stepClock advances one minute on every reading so store timestamps are
// distinct and increasing.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newTestRepo() *db.Repository {
	clock := &stepClock{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
	return db.NewRepository(db.NewMemoryStoreWithClock(clock.Now))
}

func orderReq(number string) models.OrderRequest {
	return models.OrderRequest{
		OrderNumber:        number,
		ServiceType:        "Elétrica",
		Equipment:          "Compressor 01",
		ProblemDescription: "Ruído anormal",
	}
}

func requireValidation(t *testing.T, err error, field string) *apperr.ValidationError {
	t.Helper()
	var ve *apperr.ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	require.Equal(t, field, ve.Field)
	return ve
}

var bg = context.Background()

// Package repository implements event persistence over a document store.
// MongoDB is the primary backend; a Postgres JSONB table and an in-memory
// store implement the same contract.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/event-api/internal/model"
)

// CollectionName is the collection (or table) dedicated to events.
const CollectionName = "events"

// ErrNotFound is returned when a requested event does not exist.
var ErrNotFound = errors.New("not found")

// ErrStore marks a failure of the underlying store: unreachable, timed out
// or a write that was not acknowledged.
var ErrStore = errors.New("store failure")

// ErrNotConnected is returned when a repository is built without a live
// store connection.
var ErrNotConnected = errors.New("store not connected, connect to the database first")

// EventRepository is the single-document access contract for events.
type EventRepository interface {
	// Insert stores e and returns its identifier.
	Insert(ctx context.Context, e model.Event) (string, error)
	// FindByID returns the event or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.Event, error)
	// CountAll returns the number of stored events. Zero is a valid result.
	CountAll(ctx context.Context) (int64, error)
	// UpdateByID replaces the editable fields and files of one event and
	// returns how many documents were actually modified (0 or 1).
	UpdateByID(ctx context.Context, id string, fields model.EventFields, files map[string]string) (int64, error)
	// DeleteByID removes one event and returns how many were removed (0 or 1).
	DeleteByID(ctx context.Context, id string) (int64, error)
	// FetchPage returns up to take events, projected for listing, after
	// skipping skip events in ascending schedule order.
	FetchPage(ctx context.Context, skip, take int64) ([]model.Event, error)
}

// storeErr wraps err so that errors.Is(err, ErrStore) holds.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

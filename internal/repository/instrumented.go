package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Shivanand-hulikatti/event-api/internal/metrics"
	"github.com/Shivanand-hulikatti/event-api/internal/model"
)

// Instrumented records latency and failures of every call on the wrapped
// repository.
type Instrumented struct {
	next EventRepository
}

// NewInstrumented wraps next so its calls are recorded in metrics.
func NewInstrumented(next EventRepository) *Instrumented {
	return &Instrumented{next: next}
}

// Insert records and forwards an insert.
func (r *Instrumented) Insert(ctx context.Context, e model.Event) (id string, err error) {
	defer func(start time.Time) { metrics.RecordStoreOp("insert", start, err) }(time.Now())
	return r.next.Insert(ctx, e)
}

// FindByID records and forwards a lookup. A missing event is not counted as
// an error.
func (r *Instrumented) FindByID(ctx context.Context, id string) (e *model.Event, err error) {
	defer func(start time.Time) { metrics.RecordStoreOp("find_by_id", start, ignoreNotFound(err)) }(time.Now())
	return r.next.FindByID(ctx, id)
}

// CountAll records and forwards a count.
func (r *Instrumented) CountAll(ctx context.Context) (n int64, err error) {
	defer func(start time.Time) { metrics.RecordStoreOp("count", start, err) }(time.Now())
	return r.next.CountAll(ctx)
}

// UpdateByID records and forwards an update.
func (r *Instrumented) UpdateByID(ctx context.Context, id string, fields model.EventFields, files map[string]string) (n int64, err error) {
	defer func(start time.Time) { metrics.RecordStoreOp("update", start, err) }(time.Now())
	return r.next.UpdateByID(ctx, id, fields, files)
}

// DeleteByID records and forwards a delete.
func (r *Instrumented) DeleteByID(ctx context.Context, id string) (n int64, err error) {
	defer func(start time.Time) { metrics.RecordStoreOp("delete", start, err) }(time.Now())
	return r.next.DeleteByID(ctx, id)
}

// FetchPage records and forwards a page read.
func (r *Instrumented) FetchPage(ctx context.Context, skip, take int64) (events []model.Event, err error) {
	defer func(start time.Time) { metrics.RecordStoreOp("fetch_page", start, err) }(time.Now())
	return r.next.FetchPage(ctx, skip, take)
}

// A missing document is an answer, not a store failure.
func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

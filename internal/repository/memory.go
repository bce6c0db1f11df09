package repository

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/Shivanand-hulikatti/event-api/internal/ids"
	"github.com/Shivanand-hulikatti/event-api/internal/model"
	"github.com/Shivanand-hulikatti/event-api/internal/pagination"
)

// MemoryEventRepository keeps events in process memory, in insertion order.
// It backs tests and local runs with STORE_DRIVER=memory.
type MemoryEventRepository struct {
	mu     sync.RWMutex
	events []model.Event
}

// NewMemoryEventRepository constructs an empty MemoryEventRepository.
func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{}
}

// Insert stores a copy of e, assigning an id when it has none.
func (r *MemoryEventRepository) Insert(_ context.Context, e model.Event) (string, error) {
	if e.ID == "" {
		e.ID = ids.Generate()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(e.ID) >= 0 {
		return "", storeErr("insert event", fmt.Errorf("duplicate id %s", e.ID))
	}
	r.events = append(r.events, clone(e))
	return e.ID, nil
}

// FindByID returns a copy of the event or ErrNotFound.
func (r *MemoryEventRepository) FindByID(_ context.Context, id string) (*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	e := clone(r.events[i])
	return &e, nil
}

// CountAll returns the number of stored events.
func (r *MemoryEventRepository) CountAll(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.events)), nil
}

// UpdateByID overwrites the editable fields and reports 1 only when
// something changed.
func (r *MemoryEventRepository) UpdateByID(_ context.Context, id string, fields model.EventFields, files map[string]string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return 0, nil
	}
	current := &r.events[i]
	if current.Fields() == fields && maps.Equal(current.Files, files) {
		return 0, nil
	}
	current.Apply(fields, maps.Clone(files))
	return 1, nil
}

// DeleteByID removes the event and reports how many were removed.
func (r *MemoryEventRepository) DeleteByID(_ context.Context, id string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return 0, nil
	}
	r.events = slices.Delete(r.events, i, i+1)
	return 1, nil
}

// FetchPage returns up to take events after skip in listing order.
func (r *MemoryEventRepository) FetchPage(_ context.Context, skip, take int64) ([]model.Event, error) {
	r.mu.RLock()
	sorted := make([]model.Event, len(r.events))
	for i, e := range r.events {
		sorted[i] = clone(e)
	}
	r.mu.RUnlock()

	pagination.SortBySchedule(sorted)
	return pagination.Project(pagination.Window(sorted, skip, take)), nil
}

func (r *MemoryEventRepository) indexOf(id string) int {
	return slices.IndexFunc(r.events, func(e model.Event) bool { return e.ID == id })
}

func clone(e model.Event) model.Event {
	e.Files = maps.Clone(e.Files)
	e.Attendees = slices.Clone(e.Attendees)
	if e.Attendees == nil {
		e.Attendees = []string{}
	}
	return e
}

// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Shivanand-hulikatti/event-api/internal/ids"
	"github.com/Shivanand-hulikatti/event-api/internal/model"
	"github.com/Shivanand-hulikatti/event-api/internal/pagination"
	"github.com/Shivanand-hulikatti/event-api/internal/repository"
	"github.com/Shivanand-hulikatti/event-api/internal/validation"
)

// ErrNoop is returned when an update or delete matched no document.
var ErrNoop = errors.New("no event was modified")

// ErrEmptyCollection is returned by List when the store reports zero events.
// It is reported like a store failure.
var ErrEmptyCollection = errors.New("no events stored")

// CreateInput is a create request after multipart decoding.
// ID is optional; one is generated when empty.
type CreateInput struct {
	ID     string
	Fields model.EventFields
	Files  map[string]string
}

// UpdateInput is a full replacement of an event's editable fields.
type UpdateInput struct {
	Fields model.EventFields
	Files  map[string]string
}

// ListQuery selects one page of the schedule-ordered listing.
type ListQuery struct {
	Type  string
	Limit int64
	Page  int64
}

// EventService orchestrates event operations.
type EventService struct {
	events   repository.EventRepository
	validate *validation.Validator
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events repository.EventRepository, validate *validation.Validator) *EventService {
	if validate == nil {
		validate = validation.New()
	}
	return &EventService{events: events, validate: validate}
}

// CreateEvent validates the payload and stores a new event with an empty
// attendee list.
func (s *EventService) CreateEvent(ctx context.Context, in CreateInput) (string, error) {
	if err := s.validate.ValidatePayload(in.Fields, in.Files, validation.MsgFieldsRequired); err != nil {
		return "", err
	}

	in.Fields.Schedule = pagination.NormalizeSchedule(in.Fields.Schedule)

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = ids.Generate()
	} else if err := s.validate.ValidateID(id); err != nil {
		return "", err
	}

	created, err := s.events.Insert(ctx, model.NewEvent(id, in.Fields, in.Files))
	if err != nil {
		return "", fmt.Errorf("create event: %w", err)
	}
	return created, nil
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if err := s.validate.ValidateID(id); err != nil {
		return nil, err
	}
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// ListEvents returns one page of events in ascending schedule order.
// Type is required but not applied as a filter.
func (s *EventService) ListEvents(ctx context.Context, q ListQuery) (*model.Page, error) {
	if strings.TrimSpace(q.Type) == "" {
		return nil, validation.Message(validation.MsgTypeRequired)
	}
	if q.Limit == 0 {
		q.Limit = pagination.DefaultLimit
	}
	if q.Page == 0 {
		q.Page = pagination.DefaultPage
	}
	if q.Limit < 0 {
		return nil, validation.Message(validation.MsgInvalidLimit)
	}
	if q.Page < 0 {
		return nil, validation.Message(validation.MsgInvalidPage)
	}

	total, err := s.events.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	if total == 0 {
		return nil, ErrEmptyCollection
	}

	bounds, err := pagination.Compute(total, q.Limit, q.Page)
	if err != nil {
		return nil, validation.Message(validation.MsgPageOutOfRange)
	}

	items, err := s.events.FetchPage(ctx, bounds.Skip(), bounds.Limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	return &model.Page{
		TotalEvents: total,
		CurrentPage: bounds.Page,
		TotalPages:  bounds.TotalPages,
		Items:       items,
	}, nil
}

// UpdateEvent replaces the editable fields and files of an event.
// Matching no document, or changing nothing, yields ErrNoop.
func (s *EventService) UpdateEvent(ctx context.Context, id string, in UpdateInput) error {
	if err := s.validate.ValidateID(id); err != nil {
		return err
	}
	if err := s.validate.ValidatePayload(in.Fields, in.Files, validation.MsgFieldsRequiredUpdate); err != nil {
		return err
	}

	in.Fields.Schedule = pagination.NormalizeSchedule(in.Fields.Schedule)

	n, err := s.events.UpdateByID(ctx, id, in.Fields, in.Files)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if n == 0 {
		return ErrNoop
	}
	return nil
}

// DeleteEvent removes an event. Deleting a missing event yields ErrNoop.
func (s *EventService) DeleteEvent(ctx context.Context, id string) error {
	if err := s.validate.ValidateID(id); err != nil {
		return err
	}

	n, err := s.events.DeleteByID(ctx, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n == 0 {
		return ErrNoop
	}
	return nil
}

// ParseListQuery reads type, limit and page from a query string.
// type is required; missing limit and page take their defaults.
func ParseListQuery(values url.Values) (ListQuery, error) {
	q := ListQuery{
		Type:  strings.TrimSpace(values.Get("type")),
		Limit: pagination.DefaultLimit,
		Page:  pagination.DefaultPage,
	}
	if q.Type == "" {
		return q, validation.Message(validation.MsgTypeRequired)
	}

	var err error
	if q.Limit, err = parsePositive(values.Get("limit"), pagination.DefaultLimit); err != nil {
		return q, validation.Message(validation.MsgInvalidLimit)
	}
	if q.Page, err = parsePositive(values.Get("page"), pagination.DefaultPage); err != nil {
		return q, validation.Message(validation.MsgInvalidPage)
	}
	return q, nil
}

func parsePositive(raw string, fallback int64) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("must be >= 1, got %d", n)
	}
	return n, nil
}

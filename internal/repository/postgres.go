package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/event-api/internal/ids"
	"github.com/Shivanand-hulikatti/event-api/internal/model"
	"github.com/Shivanand-hulikatti/event-api/internal/pagination"
)

// PostgresEventRepository stores each event as a JSONB document in the
// events table. seq records insertion order for stable sorting.
type PostgresEventRepository struct {
	db *pgxpool.Pool
}

// NewPostgresEventRepository constructs a PostgresEventRepository.
func NewPostgresEventRepository(db *pgxpool.Pool) (*PostgresEventRepository, error) {
	if db == nil {
		return nil, ErrNotConnected
	}
	return &PostgresEventRepository{db: db}, nil
}

// editableDocument is merged over the stored document on update.
type editableDocument struct {
	model.EventFields
	Files map[string]string `json:"files"`
}

// Insert writes e as a JSONB document, assigning an id when it has none.
func (r *PostgresEventRepository) Insert(ctx context.Context, e model.Event) (string, error) {
	if e.ID == "" {
		e.ID = ids.Generate()
	}
	e.Type = model.TypeEvent
	e.Attendees = []string{}

	doc, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode event: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO events (id, doc) VALUES ($1, $2)`,
		e.ID, doc,
	)
	if err != nil {
		return "", storeErr("insert event", err)
	}
	return e.ID, nil
}

// FindByID loads one document or returns ErrNotFound.
func (r *PostgresEventRepository) FindByID(ctx context.Context, id string) (*model.Event, error) {
	var doc []byte
	err := r.db.QueryRow(ctx, `SELECT doc FROM events WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storeErr("get event", err)
	}

	e, err := decodeEvent(doc)
	if err != nil {
		return nil, storeErr("get event", err)
	}
	return &e, nil
}

// CountAll returns the number of stored events.
func (r *PostgresEventRepository) CountAll(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM events`).Scan(&n); err != nil {
		return 0, storeErr("count events", err)
	}
	return n, nil
}

// UpdateByID only counts a row as modified when the merged document differs
// from the stored one, matching MongoDB's modifiedCount.
func (r *PostgresEventRepository) UpdateByID(ctx context.Context, id string, fields model.EventFields, files map[string]string) (int64, error) {
	patch, err := json.Marshal(editableDocument{EventFields: fields, Files: files})
	if err != nil {
		return 0, fmt.Errorf("encode event: %w", err)
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE events
		 SET doc = doc || $2::jsonb
		 WHERE id = $1 AND doc IS DISTINCT FROM doc || $2::jsonb`,
		id, patch,
	)
	if err != nil {
		return 0, storeErr("update event", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteByID removes the row and reports how many were removed.
func (r *PostgresEventRepository) DeleteByID(ctx context.Context, id string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return 0, storeErr("delete event", err)
	}
	return tag.RowsAffected(), nil
}

// FetchPage loads documents in insertion order and sorts them in process,
// since schedule is free text inside the document.
func (r *PostgresEventRepository) FetchPage(ctx context.Context, skip, take int64) ([]model.Event, error) {
	rows, err := r.db.Query(ctx, `SELECT doc FROM events ORDER BY seq ASC`)
	if err != nil {
		return nil, storeErr("list events", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, storeErr("scan event", err)
		}
		e, err := decodeEvent(doc)
		if err != nil {
			return nil, storeErr("scan event", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list events", err)
	}

	pagination.SortBySchedule(events)
	return pagination.Project(pagination.Window(events, skip, take)), nil
}

func decodeEvent(doc []byte) (model.Event, error) {
	var e model.Event
	if err := json.Unmarshal(doc, &e); err != nil {
		return model.Event{}, fmt.Errorf("decode event: %w", err)
	}
	if e.Attendees == nil {
		e.Attendees = []string{}
	}
	return e, nil
}

package sqlitedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	insertEvent = `INSERT INTO event (id, seq, type, created_at, payload) VALUES (?, ?, ?, ?, ?)`

	selectLatestEvents = `SELECT payload FROM event ORDER BY created_at DESC, seq DESC`

	selectEventsByType = `SELECT payload FROM event WHERE type = ? ORDER BY created_at ASC, seq ASC`
)

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) (domain.EventRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("cannot open event repository: db is nil")
	}
	return &eventRepository{db}, nil
}

func (r *eventRepository) Add(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return execTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(
			ctx, insertEvent,
			event.Id, int64(event.Seq), string(event.Type), event.Timestamp.UnixNano(), string(payload),
		); err != nil {
			if sqlErr, ok := err.(*sqlite.Error); ok {
				if sqlErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
					return fmt.Errorf("event %s already exists", event.Id)
				}
			}
			return fmt.Errorf("failed to insert event: %s", err)
		}
		return nil
	})
}

func (r *eventRepository) GetLatest(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit > 0 {
		return r.query(ctx, selectLatestEvents+` LIMIT ?`, limit)
	}
	return r.query(ctx, selectLatestEvents)
}

func (r *eventRepository) GetByType(
	ctx context.Context, eventType domain.EventType,
) ([]domain.Event, error) {
	return r.query(ctx, selectEventsByType, string(eventType))
}

func (r *eventRepository) Close() {
	// nolint:all
	r.db.Close()
}

func (r *eventRepository) query(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	// nolint:errcheck
	defer rows.Close()

	events := make([]domain.Event, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		var event domain.Event
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	return events, nil
}

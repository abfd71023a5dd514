package pgdb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
	"github.com/jmoiron/sqlx"
)

const (
	insertEvent = `INSERT INTO event (id, seq, type, created_at, payload)
VALUES (:id, :seq, :type, :created_at, :payload)`

	selectLatestEvents = `SELECT payload FROM event ORDER BY created_at DESC, seq DESC`

	selectEventsByType = `SELECT payload FROM event WHERE type = $1 ORDER BY created_at ASC, seq ASC`
)

type eventRow struct {
	Id        string `db:"id"`
	Seq       int64  `db:"seq"`
	Type      string `db:"type"`
	CreatedAt int64  `db:"created_at"`
	Payload   []byte `db:"payload"`
}

type eventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) (domain.EventRepository, error) {
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

	if _, err := r.db.NamedExecContext(ctx, insertEvent, eventRow{
		Id:        event.Id,
		Seq:       int64(event.Seq),
		Type:      string(event.Type),
		CreatedAt: event.Timestamp.UnixNano(),
		Payload:   payload,
	}); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("event %s already exists", event.Id)
		}
		return fmt.Errorf("failed to insert event: %s", err)
	}
	return nil
}

func (r *eventRepository) GetLatest(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit > 0 {
		return r.query(ctx, selectLatestEvents+` LIMIT $1`, limit)
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
	var payloads [][]byte
	if err := r.db.SelectContext(ctx, &payloads, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}

	events := make([]domain.Event, 0, len(payloads))
	for _, payload := range payloads {
		var event domain.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		events = append(events, event)
	}
	return events, nil
}

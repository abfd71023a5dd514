package badgerdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const (
	eventDir = "event"
)

type eventRepository struct {
	store *badgerhold.Store
}

func NewEventRepository(baseDir string, logger badger.Logger) (domain.EventRepository, error) {
	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, eventDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open event store: %s", err)
	}
	return &eventRepository{store}, nil
}

func (r *eventRepository) Add(ctx context.Context, event domain.Event) error {
	data, err := toEventData(event)
	if err != nil {
		return err
	}
	if err := r.store.Insert(event.Id, data); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("event %s already exists", event.Id)
		}
		return err
	}
	return nil
}

func (r *eventRepository) GetLatest(ctx context.Context, limit int) ([]domain.Event, error) {
	query := (&badgerhold.Query{}).SortBy("CreatedAt", "Seq").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	return r.find(query)
}

// GetByType returns the events of the given type in the order they were
// published.
func (r *eventRepository) GetByType(
	ctx context.Context, eventType domain.EventType,
) ([]domain.Event, error) {
	query := badgerhold.Where("Type").Eq(string(eventType)).SortBy("CreatedAt", "Seq")
	return r.find(query)
}

func (r *eventRepository) Close() {
	// nolint:all
	r.store.Close()
}

func (r *eventRepository) find(query *badgerhold.Query) ([]domain.Event, error) {
	var list []eventData
	if err := r.store.Find(&list, query); err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}

	events := make([]domain.Event, 0, len(list))
	for _, d := range list {
		event, err := d.toEvent()
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

type eventData struct {
	Id        string
	Seq       uint64
	Type      string
	CreatedAt int64
	Payload   []byte
}

func toEventData(event domain.Event) (eventData, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return eventData{}, fmt.Errorf("failed to encode event %s: %w", event.Id, err)
	}
	return eventData{
		Id:        event.Id,
		Seq:       event.Seq,
		Type:      string(event.Type),
		CreatedAt: event.Timestamp.UnixNano(),
		Payload:   payload,
	}, nil
}

func (d eventData) toEvent() (domain.Event, error) {
	var event domain.Event
	if err := json.Unmarshal(d.Payload, &event); err != nil {
		return domain.Event{}, fmt.Errorf("failed to decode event %s: %w", d.Id, err)
	}
	return event, nil
}

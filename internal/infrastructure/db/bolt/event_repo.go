package boltdb

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
	bolt "go.etcd.io/bbolt"
)

type eventRepository struct {
	db *bolt.DB
}

// NewEventRepository stores events in db. The caller owns db and closes it.
func NewEventRepository(db *bolt.DB) (domain.EventRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("cannot open event repository: db is nil")
	}
	return &eventRepository{db}, nil
}

func (r *eventRepository) Add(ctx context.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return r.db.Update(func(tx *bolt.Tx) error {
		ids := tx.Bucket(bucketEventIds)
		if ids.Get([]byte(event.Id)) != nil {
			return fmt.Errorf("event %s already exists", event.Id)
		}

		key := eventKey(event)
		if err := tx.Bucket(bucketEvents).Put(key, data); err != nil {
			return fmt.Errorf("failed to store event: %w", err)
		}
		if err := ids.Put([]byte(event.Id), key); err != nil {
			return fmt.Errorf("failed to store event index: %w", err)
		}
		return nil
	})
}

// GetLatest walks the events bucket backwards, keys sort by publish time.
func (r *eventRepository) GetLatest(ctx context.Context, limit int) ([]domain.Event, error) {
	events := make([]domain.Event, 0)

	err := r.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEvents).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(events) >= limit {
				break
			}
			var event domain.Event
			if err := json.Unmarshal(v, &event); err != nil {
				return fmt.Errorf("failed to unmarshal event: %w", err)
			}
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	return events, nil
}

func (r *eventRepository) GetByType(
	ctx context.Context, eventType domain.EventType,
) ([]domain.Event, error) {
	events := make([]domain.Event, 0)

	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEvents).ForEach(func(k, v []byte) error {
			var event domain.Event
			if err := json.Unmarshal(v, &event); err != nil {
				return fmt.Errorf("failed to unmarshal event: %w", err)
			}
			if event.Type == eventType {
				events = append(events, event)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	return events, nil
}

func (r *eventRepository) Close() {}

func eventKey(event domain.Event) []byte {
	var buf bytes.Buffer
	var prefix [16]byte
	binary.BigEndian.PutUint64(prefix[:8], uint64(event.Timestamp.UnixNano()))
	binary.BigEndian.PutUint64(prefix[8:], event.Seq)
	buf.Write(prefix[:])
	buf.WriteString(event.Id)
	return buf.Bytes()
}

package redispub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultChannel     = "lnwatch:events"
	DefaultHistoryKey  = "lnwatch:events:recent"
	DefaultHistorySize = 1000
	DefaultQueueSize   = 256

	publishTimeout = 3 * time.Second
	closeTimeout   = 2 * time.Second
)

var (
	ErrQueueFull = errors.New("publish queue full")
	ErrClosed    = errors.New("publisher closed")
)

// Publisher fans events out to a redis channel and keeps a capped list of
// the most recent ones, newest first. Events are handed off to a background
// worker so a slow or unreachable redis never blocks the caller.
type Publisher struct {
	client      *redis.Client
	channel     string
	historyKey  string
	historySize int64

	mu     sync.RWMutex
	closed bool
	queue  chan domain.Event
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

func NewPublisher(url string) (*Publisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		// nolint:errcheck
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	log.Debugf("connected to redis at %s (db %d)", opts.Addr, opts.DB)

	p := newPublisher(client, DefaultQueueSize)
	p.start()
	return p, nil
}

func newPublisher(client *redis.Client, queueSize int) *Publisher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Publisher{
		client:      client,
		channel:     DefaultChannel,
		historyKey:  DefaultHistoryKey,
		historySize: DefaultHistorySize,
		queue:       make(chan domain.Event, queueSize),
		done:        make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (p *Publisher) start() {
	go func() {
		defer close(p.done)
		for event := range p.queue {
			if err := p.send(event); err != nil {
				log.WithError(err).Warn("failed to publish event to redis")
			}
		}
	}()
}

func (p *Publisher) Channel() string {
	return p.channel
}

// Publish matches the event bus listener signature. It only enqueues the
// event and drops it with ErrQueueFull when the worker is behind.
func (p *Publisher) Publish(event domain.Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- event:
		return nil
	default:
		return fmt.Errorf("%w, dropped event %s", ErrQueueFull, event.Id)
	}
}

func (p *Publisher) send(event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(p.ctx, publishTimeout)
	defer cancel()

	pipe := p.client.TxPipeline()
	pipe.Publish(ctx, p.channel, payload)
	pipe.LPush(ctx, p.historyKey, payload)
	pipe.LTrim(ctx, p.historyKey, 0, p.historySize-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.Id, err)
	}
	return nil
}

// Recent returns up to limit of the last published events, newest first.
// A non positive limit returns the whole history.
func (p *Publisher) Recent(ctx context.Context, limit int64) ([]domain.Event, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = limit - 1
	}

	payloads, err := p.client.LRange(ctx, p.historyKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read event history: %w", err)
	}

	events := make([]domain.Event, 0, len(payloads))
	for _, payload := range payloads {
		var event domain.Event
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		events = append(events, event)
	}
	return events, nil
}

// Close stops accepting events and gives the queued ones a short grace
// period to be flushed before closing the client.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
	case <-time.After(closeTimeout):
		log.Warnf("dropping %d unpublished events", len(p.queue))
		p.cancel()
		<-p.done
	}
	p.cancel()
	return p.client.Close()
}

package notification

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const publishTimeout = 2 * time.Second

// Publisher dispatches events without blocking or failing the caller
type Publisher interface {
	Publish(ctx context.Context, eventType Type, accountID uuid.UUID, data map[string]interface{})
}

// RedisPublisher fans events out over redis PUBLISH.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher returns a redis-backed publisher, or a no-op one when client is nil.
func NewPublisher(client *redis.Client, channel string) Publisher {
	if client == nil {
		return NopPublisher{}
	}
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, eventType Type, accountID uuid.UUID, data map[string]interface{}) {
	payload, err := json.Marshal(Event{
		Type:       eventType,
		AccountID:  accountID,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Str("type", string(eventType)).Msg("Failed to encode event")
		return
	}

	// detached from the request: the response must not wait on delivery
	go func() {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()

		if err := p.client.Publish(pubCtx, p.channel, payload).Err(); err != nil {
			log.Warn().Err(err).Str("type", string(eventType)).Msg("Failed to publish event")
		}
	}()
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Type, uuid.UUID, map[string]interface{}) {}

// Recorder keeps published events in memory; used by tests and local tooling.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, eventType Type, accountID uuid.UUID, data map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Type: eventType, AccountID: accountID, Data: data, OccurredAt: time.Now().UTC()})
}

// Events returns a copy of everything recorded so far
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

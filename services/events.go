package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

const eventsChannel = "fleet:dataset"

const (
	EventDatasetUploaded = "dataset_uploaded"
	EventDatasetReloaded = "dataset_reloaded"
)

const (
	ScopeDefault = "default"
	ScopeSession = "session"
)

// Event tells websocket clients that the data behind their views changed.
type Event struct {
	Type      string    `json:"type"`
	Scope     string    `json:"scope"`
	SessionID string    `json:"session_id,omitempty"`
	LoadedAt  time.Time `json:"loaded_at"`
	Trips     int       `json:"trips"`
}

// VisibleTo reports whether a client of sessionID should receive e.
func (e Event) VisibleTo(sessionID string) bool {
	return e.Scope == ScopeDefault || e.SessionID == sessionID
}

// EventBus fans dataset events out to subscribers. With Redis available the
// events travel over pub/sub so every replica sees them; otherwise they stay
// in process.
type EventBus struct {
	cache *CacheService
	log   *zap.SugaredLogger

	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewEventBus(cache *CacheService, log *zap.SugaredLogger) *EventBus {
	return &EventBus{cache: cache, log: log, subs: make(map[chan Event]struct{})}
}

func (b *EventBus) Publish(ctx context.Context, e Event) {
	if b == nil {
		return
	}
	if b.cache.Available() {
		payload, err := json.Marshal(e)
		if err != nil {
			b.log.Errorw("encode event", "error", err)
			return
		}
		if err := b.cache.Publish(ctx, eventsChannel, payload); err != nil {
			b.log.Warnw("publish event", "type", e.Type, "error", err)
		}
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// slow subscriber; it will catch up on the next event
		}
	}
}

// Subscribe returns a channel of events that is closed when ctx ends.
func (b *EventBus) Subscribe(ctx context.Context) <-chan Event {
	out := make(chan Event, 8)

	if b.cache.Available() {
		pubsub := b.cache.Subscribe(ctx, eventsChannel)
		go func() {
			defer close(out)
			defer pubsub.Close()
			msgs := pubsub.Channel()
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-msgs:
					if !ok {
						return
					}
					var e Event
					if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
						b.log.Warnw("decode event", "error", err)
						continue
					}
					select {
					case out <- e:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
		return out
	}

	b.mu.Lock()
	b.subs[out] = struct{}{}
	b.mu.Unlock()
	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, out)
		close(out)
		b.mu.Unlock()
	}()
	return out
}

package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/emilythestrangee/stackit/backend/internal/models"
)

const (
	relayChannel = "stackit:events"
	presenceKey  = "stackit:presence"
)

type envelope struct {
	Origin string          `json:"origin"`
	UserID string          `json:"userId"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
}

type presenceChange struct {
	userID string
	delta  int64
}

// Relay connects hubs of several server instances through Redis. Events
// addressed to users connected elsewhere are published on a shared channel
// and delivered by whichever instance holds the user. Presence is kept as a
// per-user connection count in a Redis hash.
type Relay struct {
	rdb      redis.UniversalClient
	hub      *Hub
	instance string
	log      zerolog.Logger
	changes  chan presenceChange
}

func NewRelay(rdb redis.UniversalClient, hub *Hub, log zerolog.Logger) *Relay {
	r := &Relay{
		rdb:      rdb,
		hub:      hub,
		instance: models.NewID(),
		log:      log.With().Str("component", "relay").Logger(),
		changes:  make(chan presenceChange, 256),
	}
	hub.SetPresence(r)
	return r
}

func (r *Relay) UserOnline(userID string)  { r.enqueue(presenceChange{userID, 1}) }
func (r *Relay) UserOffline(userID string) { r.enqueue(presenceChange{userID, -1}) }

func (r *Relay) enqueue(pc presenceChange) {
	select {
	case r.changes <- pc:
	default:
		r.log.Warn().Str("user", pc.userID).Msg("presence queue full, update dropped")
	}
}

// Run subscribes to the shared channel and applies presence updates until
// ctx ends. Presence held by this instance is released on the way out.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, relayChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", relayChannel, err)
	}
	msgs := sub.Channel()
	held := map[string]int64{}

	r.log.Info().Str("instance", r.instance).Msg("relay started")
	for {
		select {
		case <-ctx.Done():
			r.release(held)
			return nil
		case pc := <-r.changes:
			if !r.applyPresence(context.WithoutCancel(ctx), pc) {
				continue
			}
			held[pc.userID] += pc.delta
			if held[pc.userID] <= 0 {
				delete(held, pc.userID)
			}
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("relay subscription closed")
			}
			r.deliver(msg.Payload)
		}
	}
}

// applyPresence adds pc.delta to the user's connection count and reports
// whether Redis took the update.
func (r *Relay) applyPresence(ctx context.Context, pc presenceChange) bool {
	n, err := r.rdb.HIncrBy(ctx, presenceKey, pc.userID, pc.delta).Result()
	if err != nil {
		r.log.Error().Err(err).Str("user", pc.userID).Msg("failed to update presence")
		return false
	}
	if n <= 0 {
		r.rdb.HDel(ctx, presenceKey, pc.userID)
	}
	return true
}

func (r *Relay) release(held map[string]int64) {
	ctx := context.Background()
	for uid, n := range held {
		r.applyPresence(ctx, presenceChange{userID: uid, delta: -n})
	}
}

func (r *Relay) deliver(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.log.Warn().Err(err).Msg("dropping malformed relay message")
		return
	}
	if env.Origin == r.instance {
		return
	}
	if r.hub.SendToUser(env.UserID, Event{Name: env.Event, Data: env.Data}) {
		r.log.Debug().Str("user", env.UserID).Str("event", env.Event).Msg("relayed event delivered")
	}
}

// Online reports whether userID is connected to any instance.
func (r *Relay) Online(ctx context.Context, userID string) (bool, error) {
	n, err := r.rdb.HGet(ctx, presenceKey, userID).Int64()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read presence: %w", err)
	}
	return n > 0, nil
}

// Publish hands ev to the other instances for delivery to userID.
func (r *Relay) Publish(ctx context.Context, userID string, ev Event) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("encode relay event: %w", err)
	}
	payload, err := json.Marshal(envelope{Origin: r.instance, UserID: userID, Event: ev.Name, Data: data})
	if err != nil {
		return fmt.Errorf("encode relay envelope: %w", err)
	}
	if err := r.rdb.Publish(ctx, relayChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish relay event: %w", err)
	}
	return nil
}

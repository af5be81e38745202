package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/wooahyo/internal/logger"
)

const relayChannelPrefix = "room:"

// envelope is the wire format on the Redis pub/sub channel. Origin lets an
// instance skip events it published itself (they were already delivered
// locally before publishing).
type envelope struct {
	Origin  string          `json:"origin"`
	RoomID  string          `json:"room_id"`
	Users   []string        `json:"users"`
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Relay mirrors room events across API instances over Redis pub/sub.
// Delivery is best-effort: the database stays the system of record.
type Relay struct {
	rdb        *redis.Client
	instanceID string
	deliver    func(userIDs []string, out OutgoingMessage)
}

func NewRelay(rdb *redis.Client, deliver func(userIDs []string, out OutgoingMessage)) *Relay {
	return &Relay{
		rdb:        rdb,
		instanceID: uuid.NewString(),
		deliver:    deliver,
	}
}

// Publish pushes an event onto the room's channel for other instances.
func (r *Relay) Publish(ctx context.Context, roomID string, userIDs []string, out OutgoingMessage) error {
	payload, err := json.Marshal(out.Payload)
	if err != nil {
		return fmt.Errorf("relay.Publish marshal payload: %w", err)
	}
	data, err := json.Marshal(envelope{
		Origin:  r.instanceID,
		RoomID:  roomID,
		Users:   userIDs,
		Type:    out.Type,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("relay.Publish marshal envelope: %w", err)
	}
	if err := r.rdb.Publish(ctx, relayChannelPrefix+roomID, data).Err(); err != nil {
		return fmt.Errorf("relay.Publish: %w", err)
	}
	return nil
}

// Run subscribes to all room channels and feeds remote events into the local
// hub until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	sub := r.rdb.PSubscribe(ctx, relayChannelPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.handle(msg)
		}
	}
}

func (r *Relay) handle(msg *redis.Message) {
	defer logger.DeferLogDuration("relay.handle", time.Now())()

	var env envelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		logger.Errorf("relay unmarshal channel=%s: %v", msg.Channel, err)
		return
	}
	if env.Origin == r.instanceID {
		return
	}
	r.deliver(env.Users, OutgoingMessage{Type: env.Type, Payload: env.Payload})
}

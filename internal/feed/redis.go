package feed

import (
	"context"       // Subscription lifetime
	"encoding/json" // Wire payload

	"peerpay/internal/domain" // Domain models

	"github.com/google/uuid"       // Instance identity
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging
)

// Channel is the Redis pub/sub channel carrying ledger notifications
const Channel = "peerpay:ledger"

// notice is the message exchanged between instances
type notice struct {
	Origin        string `json:"origin"`          // Publishing instance
	RecordID      string `json:"record_id"`       // Committed record
	FromAccountID string `json:"from_account_id"` // Sender
	ToAccountID   string `json:"to_account_id"`   // Receiver
}

// RedisBridge shares notifications between server instances through Redis.
// Local subscribers are always notified directly; Redis only carries the
// notice to other instances.
type RedisBridge struct {
	hub    *Hub
	rdb    *redis.Client
	origin string
}

// NewRedisBridge wraps hub with Redis fan-out
func NewRedisBridge(hub *Hub, rdb *redis.Client) *RedisBridge {
	return &RedisBridge{hub: hub, rdb: rdb, origin: uuid.NewString()}
}

// Publish notifies local subscribers, then other instances
func (b *RedisBridge) Publish(ctx context.Context, rec *domain.TransferRecord) error {
	_ = b.hub.Publish(ctx, rec)
	payload, err := json.Marshal(notice{
		Origin:        b.origin,
		RecordID:      rec.ID,
		FromAccountID: rec.FromAccountID,
		ToAccountID:   rec.ToAccountID,
	})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, Channel, payload).Err()
}

// Run relays notices from other instances into the local hub until ctx ends
func (b *RedisBridge) Run(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, Channel)
	defer sub.Close()
	// Wait for the subscription to be confirmed
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			b.relay(msg.Payload)
		}
	}
}

func (b *RedisBridge) relay(payload string) {
	var n notice
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		logrus.WithField("error", err.Error()).Warn("Dropping malformed ledger notice")
		return
	}
	if n.Origin == b.origin {
		return
	}
	b.hub.Notify(n.FromAccountID, domain.DirectionOut)
	b.hub.Notify(n.ToAccountID, domain.DirectionIn)
}

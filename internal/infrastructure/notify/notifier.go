// Package notify publishes ledger events to Redis pub/sub so downstream
// consumers (notification senders, dashboards) can react without coupling to
// the ledger core. Publishing is best-effort: a failed publish logs and
// never fails the money movement that already committed.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vestra-invest/ledger-service/internal/domain/entities"
	"github.com/vestra-invest/ledger-service/pkg/logger"
)

// Event is the wire shape published for every ledger event
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RedisNotifier publishes events to a Redis channel
type RedisNotifier struct {
	client  *redis.Client
	channel string
	logger  *logger.Logger
}

// NewRedisNotifier creates a notifier and verifies the connection
func NewRedisNotifier(addr, password string, db int, channel string, logger *logger.Logger) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisNotifier{
		client:  client,
		channel: channel,
		logger:  logger,
	}, nil
}

func (n *RedisNotifier) publish(eventType string, payload interface{}) {
	event := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("Failed to marshal event", "error", err, "type", eventType)
		return
	}

	// the triggering transaction already committed; use a fresh context so a
	// canceled request context cannot drop the event
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := n.client.Publish(ctx, n.channel, data).Err(); err != nil {
		n.logger.Error("Failed to publish event", "error", err, "type", eventType)
	}
}

// DepositCompleted publishes a deposit completion event
func (n *RedisNotifier) DepositCompleted(_ context.Context, deposit *entities.Deposit) {
	n.publish("deposit.completed", deposit)
}

// WithdrawalFinalized publishes a withdrawal outcome event
func (n *RedisNotifier) WithdrawalFinalized(_ context.Context, withdrawal *entities.Withdrawal) {
	n.publish("withdrawal.finalized", withdrawal)
}

// Close releases the Redis connection
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}

// NoopNotifier drops all events. Used when Redis is not configured.
type NoopNotifier struct{}

// DepositCompleted implements the funding notifier port
func (NoopNotifier) DepositCompleted(context.Context, *entities.Deposit) {}

// WithdrawalFinalized implements the withdrawal notifier port
func (NoopNotifier) WithdrawalFinalized(context.Context, *entities.Withdrawal) {}

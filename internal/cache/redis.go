// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) name for game action logs.
var DefaultQueueName = "uno_actions"

// GameActionRecord holds the minimal info needed by the historian.
type GameActionRecord struct {
	GameID        uuid.UUID              `json:"game_id"`
	ActionIndex   int                    `json:"action_index"`
	ActorID       uuid.UUID              `json:"actor_id"` // uuid.Nil for actions the game takes itself
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// QueueName returns HISTORIAN_QUEUE_NAME or the default queue.
func QueueName() string {
	return config.GetEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName)
}

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis(ctx context.Context) error {
	addr := config.GetEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := config.GetEnvInt("REDIS_DB", 0)

	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	Rdb = client
	return nil
}

// Publisher pushes action records onto a Redis list.
type Publisher struct {
	client *redis.Client
	queue  string
}

// NewPublisher returns a Publisher on the given client and list.
func NewPublisher(client *redis.Client, queue string) *Publisher {
	return &Publisher{client: client, queue: queue}
}

// Publish serializes the given record to JSON, then pushes it to the Redis queue.
func (p *Publisher) Publish(ctx context.Context, record GameActionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal GameActionRecord: %w", err)
	}
	if err := p.client.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}

// PublishAsync publishes in its own goroutine with a short timeout, so game logic never waits on Redis.
// Failures are passed to onErr, which may be nil.
func (p *Publisher) PublishAsync(record GameActionRecord, onErr func(error)) {
	go func(rec GameActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := p.Publish(ctx, rec); err != nil && onErr != nil {
			onErr(err)
		}
	}(record)
}

// PopBatch blocks up to timeout for the first record, then drains up to max-1 more without blocking.
// Records that fail to decode are skipped and reported through the returned count.
func PopBatch(ctx context.Context, client *redis.Client, queue string, max int, timeout time.Duration) ([]GameActionRecord, int, error) {
	res, err := client.BLPop(ctx, timeout, queue).Result()
	if err == redis.Nil {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("BLPop on '%s': %w", queue, err)
	}

	raw := []string{res[1]}
	for len(raw) < max {
		s, err := client.LPop(ctx, queue).Result()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("LPop on '%s': %w", queue, err)
		}
		raw = append(raw, s)
	}

	records := make([]GameActionRecord, 0, len(raw))
	bad := 0
	for _, s := range raw {
		var rec GameActionRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			bad++
			continue
		}
		records = append(records, rec)
	}
	return records, bad, nil
}

// Consumer pops action records off a Redis list for the historian.
type Consumer struct {
	client *redis.Client
	queue  string
	logger *logrus.Entry
}

// NewConsumer returns a Consumer on the given client and list.
func NewConsumer(client *redis.Client, queue string, logger *logrus.Logger) *Consumer {
	return &Consumer{
		client: client,
		queue:  queue,
		logger: logger.WithField("queue", queue),
	}
}

// Pop returns the next batch of at most max records, or nil after waiting timeout on an empty queue.
func (c *Consumer) Pop(ctx context.Context, max int, timeout time.Duration) ([]GameActionRecord, error) {
	recs, bad, err := PopBatch(ctx, c.client, c.queue, max, timeout)
	if bad > 0 {
		c.logger.Warnf("skipped %d undecodable action records", bad)
	}
	return recs, err
}

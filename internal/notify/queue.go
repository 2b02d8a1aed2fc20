package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/parkour/internal/config"
)

type Queue interface {
	Enqueue(context.Context, Message) error
	Dequeue(context.Context) (Message, error)
	Close() error
}

type MemoryQueue struct {
	ch chan Message
}

func NewMemoryQueue(buffer int) *MemoryQueue {
	return &MemoryQueue{ch: make(chan Message, buffer)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, msg Message) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.ch <- msg:
		return nil
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (Message, error) {
	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case m := <-q.ch:
		return m, nil
	}
}

func (q *MemoryQueue) Close() error { return nil }

// blocking reads ignore ctx, so BLPOP waits at most this long before
// ctx is checked again
const redisPollTimeout = time.Second

// RedisQueue lets pending notifications survive a restart.
type RedisQueue struct {
	client *redis.Client
	key    string
	poll   time.Duration
}

func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "parkour:notify"
	}
	return &RedisQueue{client: client, key: key, poll: redisPollTimeout}
}

func (q *RedisQueue) Enqueue(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := q.client.RPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("redis enqueue: %w", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (Message, error) {
	var res []string
	for {
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}
		var err error
		res, err = q.client.BLPop(ctx, q.poll, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return Message{}, err
		}
		break
	}
	if len(res) < 2 {
		return Message{}, fmt.Errorf("redis dequeue: empty result")
	}
	var msg Message
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		return Message{}, fmt.Errorf("unmarshal message: %w", err)
	}
	return msg, nil
}

func (q *RedisQueue) Close() error { return q.client.Close() }

// QueueFromConfig returns the queue selected by cfg.Notify.Queue.
func QueueFromConfig(cfg config.Config) Queue {
	if cfg.Notify.Queue == config.QueueRedis {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		return NewRedisQueue(client, cfg.Notify.RedisKey)
	}
	return NewMemoryQueue(cfg.Notify.Buffer)
}

package ledger

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisPersister stores the JSON ledger document under a single key.
type RedisPersister struct {
	client *redis.Client
	key    string
}

func NewRedisPersister(client *redis.Client, key string) *RedisPersister {
	return &RedisPersister{client: client, key: key}
}

func (p *RedisPersister) Load(ctx context.Context) ([]Slot, error) {
	b, err := p.client.Get(ctx, p.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, loadErr(err)
	}
	return decodeDocument(b)
}

func (p *RedisPersister) Save(ctx context.Context, slots []Slot) error {
	b, err := encodeDocument(slots)
	if err != nil {
		return writeErr(err)
	}
	if err := p.client.Set(ctx, p.key, b, 0).Err(); err != nil {
		return writeErr(err)
	}
	return nil
}

func (p *RedisPersister) Close() error { return p.client.Close() }

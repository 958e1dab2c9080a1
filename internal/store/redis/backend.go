package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/bitscreen/internal/store"
)

// Backend keeps the store document under a single Redis key.
type Backend struct {
	client *redis.Client
	key    string
}

// NewBackend creates a document backend. An empty key selects
// DefaultDocumentKey.
func NewBackend(client *redis.Client, key string) *Backend {
	if key == "" {
		key = DefaultDocumentKey
	}
	return &Backend{
		client: client,
		key:    key,
	}
}

func (b *Backend) Name() string { return "redis" }

// Load retrieves the document, or store.ErrNoDocument when the key is unset.
func (b *Backend) Load(ctx context.Context) ([]byte, error) {
	data, err := b.client.Get(ctx, b.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNoDocument
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return data, nil
}

// Save replaces the document and bumps its revision in one transaction.
func (b *Backend) Save(ctx context.Context, data []byte) error {
	pipe := b.client.TxPipeline()
	pipe.Set(ctx, b.key, data, 0)
	pipe.Incr(ctx, RevisionKey(b.key))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// Revision returns how many times the document has been saved.
func (b *Backend) Revision(ctx context.Context) (int64, error) {
	rev, err := b.client.Get(ctx, RevisionKey(b.key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read revision: %w", err)
	}
	return rev, nil
}

// Ping checks that Redis answers.
func (b *Backend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Dedupe remembers recently processed comment IDs in Redis so redelivered
// webhook events don't create duplicate comment rows.
type Dedupe struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDedupe(client *redis.Client, ttl time.Duration) *Dedupe {
	return &Dedupe{
		client: client,
		ttl:    ttl,
	}
}

func (d *Dedupe) IsDuplicate(ctx context.Context, externalID string) (bool, error) {
	_, err := d.client.Get(ctx, dedupeKey(externalID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check duplicate: %w", err)
	}
	return true, nil
}

func (d *Dedupe) MarkProcessed(ctx context.Context, externalID string) error {
	err := d.client.Set(ctx, dedupeKey(externalID), time.Now().Unix(), d.ttl).Err()
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

func dedupeKey(externalID string) string {
	return fmt.Sprintf("dedupe:comment:%s", externalID)
}

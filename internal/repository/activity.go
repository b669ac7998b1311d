package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/boardgames-server/internal/entity"
)

// ActivityRepository mirrors the activity log into a capped Redis list.
type ActivityRepository struct {
	client *redis.Client
	key    string
}

func NewActivityRepository(client *redis.Client, key string) *ActivityRepository {
	return &ActivityRepository{
		client: client,
		key:    key,
	}
}

// Append pushes the entry and trims the list to the newest maxEntries.
func (that *ActivityRepository) Append(ctx context.Context, entry entity.LogEntry, maxEntries int) error {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}

	pipe := that.client.TxPipeline()
	pipe.RPush(ctx, that.key, entryJSON)
	pipe.LTrim(ctx, that.key, int64(-maxEntries), -1)

	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}

	return nil
}

// Trim drops everything but the newest maxEntries.
func (that *ActivityRepository) Trim(ctx context.Context, maxEntries int) error {
	if err := that.client.LTrim(ctx, that.key, int64(-maxEntries), -1).Err(); err != nil {
		return fmt.Errorf("failed to trim log: %w", err)
	}

	return nil
}

func (that *ActivityRepository) List(ctx context.Context) ([]entity.LogEntry, error) {
	response, err := that.client.LRange(ctx, that.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}

	entries := make([]entity.LogEntry, 0, len(response))
	for _, raw := range response {
		var entry entity.LogEntry
		if err = json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal log entry: %w", err)
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

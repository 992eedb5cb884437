package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vietddude/clinicnet/internal/core/domain"
)

// Client wraps Redis operations for notice delivery.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Key helpers
func reportedKey(kind domain.NoticeKind, taskID string) string {
	return fmt.Sprintf("notice:%s:%s", kind, taskID)
}

// PublishNotice appends a notice to a capped stream and returns the entry ID.
func (c *Client) PublishNotice(
	ctx context.Context,
	stream string,
	n domain.Notice,
	maxLen int64,
) (string, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("marshal notice: %w", err)
	}

	id, err := c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: maxLen,
		Approx: maxLen > 0,
		Values: map[string]any{
			"kind":    string(n.Kind),
			"level":   string(n.Level),
			"task_id": n.TaskID,
			"payload": string(payload),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd failed: %w", err)
	}
	return id, nil
}

// RecentNotices returns up to count notices, newest first.
func (c *Client) RecentNotices(ctx context.Context, stream string, count int64) ([]domain.Notice, error) {
	msgs, err := c.rdb.XRevRangeN(ctx, stream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("xrevrange failed: %w", err)
	}

	notices := make([]domain.Notice, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values["payload"].(string)
		if !ok {
			continue
		}
		var n domain.Notice
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			return nil, fmt.Errorf("invalid notice %s: %w", m.ID, err)
		}
		notices = append(notices, n)
	}
	return notices, nil
}

// MarkReported records that a notice for taskID was delivered. It returns false
// when it had already been recorded within ttl.
func (c *Client) MarkReported(
	ctx context.Context,
	kind domain.NoticeKind,
	taskID string,
	ttl time.Duration,
) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, reportedKey(kind, taskID), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	return ok, nil
}

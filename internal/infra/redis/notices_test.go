package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/clinicnet/internal/core/domain"
)

// setupTestClient creates a client backed by miniredis.
func setupTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewClient(Config{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func terminalNotice(taskID string) domain.Notice {
	return domain.Notice{
		ID:        "notice-" + taskID,
		Kind:      domain.NoticeTerminalFailure,
		Level:     domain.LevelError,
		Message:   "Failed to save profile after multiple attempts.",
		TaskID:    taskID,
		Context:   domain.TaskContext{Operation: "save profile"},
		Attempts:  3,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestNewClient_BadURL(t *testing.T) {
	_, err := NewClient(Config{URL: "not-a-url"})
	require.Error(t, err)
}

func TestClient_PublishAndRead(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	_, err := client.PublishNotice(ctx, "notices", terminalNotice("a"), 100)
	require.NoError(t, err)
	_, err = client.PublishNotice(ctx, "notices", terminalNotice("b"), 100)
	require.NoError(t, err)

	notices, err := client.RecentNotices(ctx, "notices", 10)
	require.NoError(t, err)
	require.Len(t, notices, 2)
	assert.Equal(t, "b", notices[0].TaskID)
	assert.Equal(t, "a", notices[1].TaskID)
	assert.Equal(t, domain.NoticeTerminalFailure, notices[0].Kind)
	assert.Equal(t, "save profile", notices[0].Context.Operation)
}

func TestNoticePublisher_TerminalFailureOnce(t *testing.T) {
	client, _ := setupTestClient(t)
	publisher := NewNoticePublisher(client, NoticeConfig{Stream: "notices"})
	ctx := context.Background()

	require.NoError(t, publisher.Notify(ctx, terminalNotice("task-1")))
	require.NoError(t, publisher.Notify(ctx, terminalNotice("task-1")))

	notices, err := client.RecentNotices(ctx, "notices", 10)
	require.NoError(t, err)
	assert.Len(t, notices, 1, "a terminal failure must be published once")
}

func TestNoticePublisher_ConnectionRestoredAlwaysPublished(t *testing.T) {
	client, _ := setupTestClient(t)
	publisher := NewNoticePublisher(client, NoticeConfig{Stream: "notices"})
	ctx := context.Background()

	restored := domain.Notice{Kind: domain.NoticeConnectionRestored, Level: domain.LevelInfo, Message: "Connection restored"}
	require.NoError(t, publisher.Notify(ctx, restored))
	require.NoError(t, publisher.Notify(ctx, restored))

	notices, err := client.RecentNotices(ctx, "notices", 10)
	require.NoError(t, err)
	assert.Len(t, notices, 2)
}

func TestNoticePublisher_RedisDown(t *testing.T) {
	client, mr := setupTestClient(t)
	publisher := NewNoticePublisher(client, NoticeConfig{})
	mr.Close()

	err := publisher.Notify(context.Background(), terminalNotice("task-1"))
	assert.Error(t, err)
}

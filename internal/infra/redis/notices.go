package redis

import (
	"context"
	"time"

	"github.com/vietddude/clinicnet/internal/core/domain"
)

// NoticeConfig controls where notices are published.
type NoticeConfig struct {
	Stream    string        `yaml:"stream"`
	MaxLen    int64         `yaml:"max_len"`
	ReportTTL time.Duration `yaml:"report_ttl"`
}

// DefaultNoticeConfig returns sensible defaults.
func DefaultNoticeConfig() NoticeConfig {
	return NoticeConfig{
		Stream:    "clinicnet:notices",
		MaxLen:    1000,
		ReportTTL: 24 * time.Hour,
	}
}

// NoticePublisher publishes notices to a Redis stream so that other portal
// tabs and services can surface them. Terminal failures are published at most
// once per task.
type NoticePublisher struct {
	client *Client
	cfg    NoticeConfig
}

// NewNoticePublisher creates a publisher. Zero config fields take defaults.
func NewNoticePublisher(client *Client, cfg NoticeConfig) *NoticePublisher {
	def := DefaultNoticeConfig()
	if cfg.Stream == "" {
		cfg.Stream = def.Stream
	}
	if cfg.MaxLen <= 0 {
		cfg.MaxLen = def.MaxLen
	}
	if cfg.ReportTTL <= 0 {
		cfg.ReportTTL = def.ReportTTL
	}
	return &NoticePublisher{client: client, cfg: cfg}
}

// Notify implements notify.Notifier.
func (p *NoticePublisher) Notify(ctx context.Context, n domain.Notice) error {
	if n.Kind == domain.NoticeTerminalFailure && n.TaskID != "" {
		first, err := p.client.MarkReported(ctx, n.Kind, n.TaskID, p.cfg.ReportTTL)
		if err != nil {
			return err
		}
		if !first {
			return nil
		}
	}
	_, err := p.client.PublishNotice(ctx, p.cfg.Stream, n, p.cfg.MaxLen)
	return err
}

// Package nats subscribes to knowledge-base refresh notifications published
// by the external ingestion process. The retrieval core never writes to the
// store; refresh events only invalidate read-side state (embedding cache,
// speller vocabulary).
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// RefreshEvent is the payload of a kb.refreshed message. Vocabulary is
// optional; when present it replaces the speller's word list.
type RefreshEvent struct {
	Snapshot   string   `json:"snapshot"`
	Vocabulary []string `json:"vocabulary,omitempty"`
}

type Subscriber struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

type Options struct {
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
	Logger         *slog.Logger
}

func NewSubscriber(url, subject string, options Options) (*Subscriber, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("campus-assistant"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Subscriber{conn: conn, subject: subject, logger: logger}, nil
}

// SubscribeRefreshed registers the refresh handler. Handler errors are
// logged and dropped; a bad refresh message must never affect searches.
func (s *Subscriber) SubscribeRefreshed(ctx context.Context, handler func(context.Context, RefreshEvent) error) error {
	_, err := s.conn.Subscribe(s.subject, func(msg *nats.Msg) {
		var event RefreshEvent
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				s.logger.Warn("refresh_event_malformed", "subject", s.subject, "error", err)
				return
			}
		}
		if err := handler(ctx, event); err != nil {
			s.logger.Warn("refresh_handler_failed", "subject", s.subject, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.subject, err)
	}
	return nil
}

func (s *Subscriber) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}

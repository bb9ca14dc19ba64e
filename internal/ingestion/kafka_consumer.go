// Package ingestion holds the non-HTTP entrypoints that feed interaction
// events into the engine: currently just the Kafka consumer, which shares
// the exact same InteractionService.Apply path the HTTP handlers use.
package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	kafka "github.com/segmentio/kafka-go"

	"github.com/subculture-collective/recaster/config"
	"github.com/subculture-collective/recaster/internal/models"
	"github.com/subculture-collective/recaster/internal/services"
	"github.com/subculture-collective/recaster/pkg/utils"
)

// message is the wire shape of a record on the interaction-events topic.
// It mirrors the HTTP request bodies rather than models.InteractionEvent
// directly, since producers outside this service don't share our internal
// types.
type message struct {
	UserID       string  `json:"user_id"`
	VideoID      string  `json:"video_id"`
	ChannelID    string  `json:"channel_id"`
	Kind         string  `json:"kind"`
	OccurredAt   int64   `json:"occurred_at"` // unix seconds; defaults to now if zero
	WatchSeconds float64 `json:"watch_seconds"`
	CommentText  string  `json:"comment_text"`
}

func (m message) toEvent() (models.InteractionEvent, error) {
	kind := models.EventKind(m.Kind)
	switch kind {
	case models.EventWatch, models.EventLike, models.EventDislike, models.EventComment,
		models.EventShare, models.EventSubscribe, models.EventUnsubscribe:
	default:
		return models.InteractionEvent{}, errors.New("unknown event kind: " + m.Kind)
	}
	if m.UserID == "" {
		return models.InteractionEvent{}, errors.New("missing user_id")
	}

	occurredAt := time.Now().UTC()
	if m.OccurredAt > 0 {
		occurredAt = time.Unix(m.OccurredAt, 0).UTC()
	}

	return models.InteractionEvent{
		UserID:       m.UserID,
		VideoID:      m.VideoID,
		ChannelID:    m.ChannelID,
		Kind:         kind,
		OccurredAt:   occurredAt,
		WatchSeconds: m.WatchSeconds,
		CommentText:  m.CommentText,
	}, nil
}

// Consumer reads interaction events off a Kafka topic and applies them
// through the same write path the HTTP handlers use.
type Consumer struct {
	reader  *kafka.Reader
	applier *services.InteractionService
}

// NewConsumer builds a Consumer. Brokers is read from cfg.Brokers as a
// comma-separated list.
func NewConsumer(cfg config.KafkaConfig, applier *services.InteractionService) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  splitBrokers(cfg.Brokers),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1e3,  // 1KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader, applier: applier}
}

func splitBrokers(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Run reads messages until ctx is cancelled or the reader is closed. A
// malformed or rejected event is logged and skipped rather than stopping
// the loop, so one bad producer can't take down ingestion for everyone
// else on the topic.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		raw, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			utils.GetLogger().Error("kafka read failed", err, map[string]interface{}{
				"topic": c.reader.Config().Topic,
			})
			continue
		}

		var msg message
		if err := json.Unmarshal(raw.Value, &msg); err != nil {
			utils.GetLogger().Error("kafka message unmarshal failed", err, map[string]interface{}{
				"topic":     c.reader.Config().Topic,
				"partition": raw.Partition,
				"offset":    raw.Offset,
			})
			continue
		}

		ev, err := msg.toEvent()
		if err != nil {
			utils.GetLogger().Error("kafka message rejected", err, map[string]interface{}{
				"topic":  c.reader.Config().Topic,
				"offset": raw.Offset,
			})
			continue
		}

		if err := c.applier.Apply(ctx, ev); err != nil {
			utils.GetLogger().Error("interaction event apply failed", err, map[string]interface{}{
				"user_id": ev.UserID,
				"kind":    string(ev.Kind),
			})
			continue
		}
	}
}

// Close releases the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

package models

import "time"

// EventKind identifies the kind of interaction event ingestion applies.
type EventKind string

const (
	EventWatch       EventKind = "watch"
	EventLike        EventKind = "like"
	EventDislike     EventKind = "dislike"
	EventComment     EventKind = "comment"
	EventShare       EventKind = "share"
	EventSubscribe   EventKind = "subscribe"
	EventUnsubscribe EventKind = "unsubscribe"
)

// InteractionEvent is the single shape ingestion applies, regardless of
// whether it arrived over HTTP or the Kafka interaction stream.
type InteractionEvent struct {
	UserID       string
	VideoID      string
	ChannelID    string // only set for subscribe/unsubscribe
	Kind         EventKind
	OccurredAt   time.Time
	WatchSeconds float64
	CommentText  string
}

// IdempotencyKey identifies the event for dedupe purposes: re-applying an
// event with an identical key is a no-op.
type IdempotencyKey struct {
	UserID     string
	VideoID    string
	Kind       EventKind
	OccurredAt time.Time
}

// Key returns the event's idempotency key.
func (e InteractionEvent) Key() IdempotencyKey {
	return IdempotencyKey{
		UserID:     e.UserID,
		VideoID:    e.VideoID,
		Kind:       e.Kind,
		OccurredAt: e.OccurredAt,
	}
}

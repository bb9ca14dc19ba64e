package services

import (
	"context"

	"github.com/subculture-collective/recaster/internal/engine"
	"github.com/subculture-collective/recaster/internal/models"
	"github.com/subculture-collective/recaster/pkg/metrics"
)

// InteractionService is the single write-path entrypoint shared by the
// HTTP handlers and the Kafka consumer: it applies an interaction event
// to the store and invalidates that user's cached recommendations so
// the next request reflects the new signal.
type InteractionService struct {
	eng  *engine.Engine
	recs *RecommendationService
}

// NewInteractionService builds an InteractionService. recs may be nil
// if no cache invalidation is desired (e.g. in tests).
func NewInteractionService(eng *engine.Engine, recs *RecommendationService) *InteractionService {
	return &InteractionService{eng: eng, recs: recs}
}

// Apply ingests a single interaction event.
func (s *InteractionService) Apply(ctx context.Context, ev models.InteractionEvent) error {
	if err := s.eng.Store().Apply(ev); err != nil {
		metrics.IngestionEventsTotal.WithLabelValues(string(ev.Kind), "rejected").Inc()
		return err
	}
	metrics.IngestionEventsTotal.WithLabelValues(string(ev.Kind), "applied").Inc()
	if s.recs != nil {
		s.recs.InvalidateUser(ctx, ev.UserID)
	}
	return nil
}

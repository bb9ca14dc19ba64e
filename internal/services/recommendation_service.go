// Package services wraps the engine package with the cross-cutting
// concerns a request handler needs: response caching and cache
// invalidation on ingestion.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/subculture-collective/recaster/internal/engine"
	"github.com/subculture-collective/recaster/internal/models"
	"github.com/subculture-collective/recaster/pkg/metrics"
	"github.com/subculture-collective/recaster/pkg/redis"
	"github.com/subculture-collective/recaster/pkg/utils"
)

// RecommendationService serves /api/recommendations with a cache-aside
// layer in front of the engine's scoring pipeline.
type RecommendationService struct {
	eng      *engine.Engine
	cache    *redis.Client
	cacheTTL time.Duration
}

// NewRecommendationService builds a RecommendationService. cache may be
// nil, in which case every request falls through to the engine.
func NewRecommendationService(eng *engine.Engine, cache *redis.Client, cacheTTLSeconds int) *RecommendationService {
	if cacheTTLSeconds <= 0 {
		cacheTTLSeconds = 60
	}
	return &RecommendationService{
		eng:      eng,
		cache:    cache,
		cacheTTL: time.Duration(cacheTTLSeconds) * time.Second,
	}
}

func cacheKey(userID string, count int) string {
	return fmt.Sprintf("recommendations:%s:%d", userID, count)
}

// GetRecommendations returns up to count recommended videos for userID,
// serving from cache when available and populating the cache on miss.
// count <= 0 is a validation error: no state change, nothing cached.
func (s *RecommendationService) GetRecommendations(ctx context.Context, userID string, count int) ([]models.RecommendedVideo, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive, got %d", models.ErrValidation, count)
	}

	key := cacheKey(userID, count)
	if s.cache != nil {
		var cached []models.RecommendedVideo
		if err := s.cache.GetJSON(ctx, key, &cached); err == nil && cached != nil {
			metrics.RecommendationRequestsTotal.WithLabelValues("true").Inc()
			return cached, nil
		}
	}
	metrics.RecommendationRequestsTotal.WithLabelValues("false").Inc()

	recs, err := s.eng.Recommend(userID, count)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, recs, s.cacheTTL); err != nil {
			utils.GetLogger().Warn("recommendation cache write failed", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}
	return recs, nil
}

// InvalidateUser drops every cached recommendation list for userID so
// the next request reflects interactions just ingested. Count is not
// known at invalidation time, so this clears the whole per-user prefix
// rather than a single key.
func (s *RecommendationService) InvalidateUser(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	pattern := fmt.Sprintf("recommendations:%s:*", userID)
	if err := s.cache.DeletePattern(ctx, pattern); err != nil {
		utils.GetLogger().Warn("recommendation cache invalidation failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subculture-collective/recaster/config"
	"github.com/subculture-collective/recaster/internal/engine"
	"github.com/subculture-collective/recaster/internal/models"
)

func testConfig() config.RecommendationsConfig {
	return config.RecommendationsConfig{
		PopularityWeight:    1,
		DecayLambdaPerDay:   1.0 / 30.0,
		TrendingWindowHours: 24,
		DiversityDivisor:    3,
	}
}

func TestRecommendationServiceWithoutCacheFallsThroughToEngine(t *testing.T) {
	store := engine.NewStore(1.0 / 30.0)
	store.CreateOrUpdateVideo(&models.Video{ID: "v1", Metrics: models.VideoMetrics{Views: 100, Likes: 50}})
	eng := engine.NewWithStore(store, testConfig())

	svc := NewRecommendationService(eng, nil, 60)
	recs, err := svc.GetRecommendations(context.Background(), "u1", 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "v1", recs[0].ID)
}

func TestRecommendationServiceRejectsNonPositiveCount(t *testing.T) {
	eng := engine.New(testConfig())
	svc := NewRecommendationService(eng, nil, 60)

	_, err := svc.GetRecommendations(context.Background(), "u1", 0)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.GetRecommendations(context.Background(), "u1", -5)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestRecommendationServiceInvalidateUserWithoutCacheIsNoop(t *testing.T) {
	eng := engine.New(testConfig())
	svc := NewRecommendationService(eng, nil, 60)
	svc.InvalidateUser(context.Background(), "u1") // must not panic
}

func TestCacheKeyFormat(t *testing.T) {
	assert.Equal(t, "recommendations:u1:20", cacheKey("u1", 20))
}

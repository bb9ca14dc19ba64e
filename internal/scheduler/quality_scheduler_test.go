package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subculture-collective/recaster/config"
	"github.com/subculture-collective/recaster/internal/engine"
	"github.com/subculture-collective/recaster/internal/models"
	"github.com/subculture-collective/recaster/internal/services"
)

func testConfig() config.RecommendationsConfig {
	return config.RecommendationsConfig{
		PopularityWeight:    1,
		DecayLambdaPerDay:   1.0 / 30.0,
		TrendingWindowHours: 24,
		DiversityDivisor:    3,
	}
}

func TestNewQualitySchedulerAppliesDefaults(t *testing.T) {
	eng := engine.New(testConfig())
	stats := services.NewStatsService(eng)

	s := NewQualityScheduler(eng, stats, 0, 0)
	assert.Equal(t, 15*time.Minute, s.interval)
	assert.Equal(t, 10, s.k)
}

func TestRunEvaluationSkipsWhenNoScenarios(t *testing.T) {
	eng := engine.New(testConfig())
	stats := services.NewStatsService(eng)
	s := NewQualityScheduler(eng, stats, 15, 10)

	s.runEvaluation()
	assert.Equal(t, 0.0, stats.Stats().RecommendationQuality, "an empty matrix yields no scenarios, so no sample should be recorded")
}

func TestRunEvaluationRecordsQualitySample(t *testing.T) {
	store := engine.NewStore(1.0 / 30.0)
	now := time.Now()
	store.CreateOrUpdateVideo(&models.Video{ID: "v1", Duration: 100 * time.Second})
	require.NoError(t, store.Apply(models.InteractionEvent{
		UserID: "u1", VideoID: "v1", Kind: models.EventWatch, OccurredAt: now, WatchSeconds: 100,
	}))
	require.NoError(t, store.Apply(models.InteractionEvent{
		UserID: "u1", VideoID: "v1", Kind: models.EventLike, OccurredAt: now,
	}))

	eng := engine.NewWithStore(store, testConfig())
	stats := services.NewStatsService(eng)
	s := NewQualityScheduler(eng, stats, 15, 10)

	s.runEvaluation()

	history := stats.Stats().RecommendationHistory
	require.Len(t, history, 1)
}

func TestStartReturnsOnContextCancellation(t *testing.T) {
	eng := engine.New(testConfig())
	stats := services.NewStatsService(eng)
	s := NewQualityScheduler(eng, stats, 15, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after context cancellation")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	eng := engine.New(testConfig())
	stats := services.NewStatsService(eng)
	s := NewQualityScheduler(eng, stats, 15, 10)

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()
	s.Stop()
	s.Stop() // must not panic on double-close

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

// Package scheduler runs periodic background jobs against the engine,
// independent of any HTTP or message-consumer request path.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/subculture-collective/recaster/internal/engine"
	"github.com/subculture-collective/recaster/internal/services"
	"github.com/subculture-collective/recaster/pkg/metrics"
	"github.com/subculture-collective/recaster/pkg/utils"
)

const qualityJobName = "recommendation_quality_eval"

// QualityScheduler periodically builds an offline evaluation scenario
// set from the live user-item matrix, runs it through the engine's
// Evaluate, and feeds the resulting NDCG@K into the stats service's
// rolling quality history.
type QualityScheduler struct {
	eng   *engine.Engine
	stats *services.StatsService
	k     int

	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewQualityScheduler builds a QualityScheduler. k is the cutoff the
// offline evaluation ranks against (NDCG@k); intervalMinutes <= 0 falls
// back to 15.
func NewQualityScheduler(eng *engine.Engine, stats *services.StatsService, intervalMinutes, k int) *QualityScheduler {
	if intervalMinutes <= 0 {
		intervalMinutes = 15
	}
	if k <= 0 {
		k = 10
	}
	return &QualityScheduler{
		eng:      eng,
		stats:    stats,
		k:        k,
		interval: time.Duration(intervalMinutes) * time.Minute,
		stopChan: make(chan struct{}),
	}
}

// Start runs an initial evaluation pass immediately, then repeats on
// interval until ctx is cancelled or Stop is called.
func (s *QualityScheduler) Start(ctx context.Context) {
	logger := utils.GetLogger()
	logger.Info("starting recommendation quality scheduler", map[string]interface{}{
		"interval": s.interval.String(),
		"k":        s.k,
	})
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runEvaluation()
	for {
		select {
		case <-ticker.C:
			s.runEvaluation()
		case <-s.stopChan:
			logger.Info("recommendation quality scheduler stopped", nil)
			return
		case <-ctx.Done():
			logger.Info("recommendation quality scheduler stopped due to context cancellation", nil)
			return
		}
	}
}

// Stop signals Start's loop to exit. Safe to call multiple times or
// from a goroutine other than the one running Start.
func (s *QualityScheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// viewLogRetention bounds how long the per-video view log (used by the
// temporal scorer's trending window) is kept. It is fixed at seven days,
// independent of the configured trending window: any window up to seven
// days finds its log intact, while a wider one sees only the last seven
// days of views.
const viewLogRetention = 7 * 24 * time.Hour

func (s *QualityScheduler) runEvaluation() {
	logger := utils.GetLogger()
	start := time.Now()

	s.eng.Store().PruneViewLog(start.Add(-viewLogRetention))

	scenarios := s.eng.BuildScenarios(s.k)
	if len(scenarios) == 0 {
		logger.Info("skipping recommendation quality evaluation, no scenarios yet", nil)
		return
	}

	report, err := s.eng.Evaluate(scenarios)
	duration := time.Since(start)
	metrics.JobExecutionDuration.WithLabelValues(qualityJobName).Observe(duration.Seconds())
	if err != nil {
		metrics.JobExecutionTotal.WithLabelValues(qualityJobName, "failed").Inc()
		logger.Error("recommendation quality evaluation failed", err, nil)
		return
	}

	now := time.Now()
	s.stats.RecordQualitySample(now, report.MeanNDCG)
	metrics.JobExecutionTotal.WithLabelValues(qualityJobName, "success").Inc()
	metrics.JobLastSuccessTimestamp.WithLabelValues(qualityJobName).Set(float64(now.Unix()))
	logger.Info("recommendation quality evaluation completed", map[string]interface{}{
		"duration":   duration.String(),
		"scenarios":  len(scenarios),
		"mean_ndcg":  report.MeanNDCG,
		"mean_prec":  report.MeanPrecision,
		"mean_recall": report.MeanRecall,
	})
}

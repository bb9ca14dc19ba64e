package engine

import (
	"sync"
	"time"

	"github.com/subculture-collective/recaster/config"
	"github.com/subculture-collective/recaster/internal/models"
	"github.com/subculture-collective/recaster/pkg/metrics"
)

// Engine wires the store, the five scoring strategies and the hybrid
// ranker into a single Recommend entrypoint. It is safe for concurrent
// use by multiple goroutines.
type Engine struct {
	store  *Store
	ranker *Ranker
}

// New builds an Engine from the recommendations section of the loaded
// config, using a fresh empty Store.
func New(cfg config.RecommendationsConfig) *Engine {
	store := NewStore(cfg.DecayLambdaPerDay)
	return NewWithStore(store, cfg)
}

// NewWithStore builds an Engine over an existing Store, useful for tests
// that need to seed state before constructing the engine.
func NewWithStore(store *Store, cfg config.RecommendationsConfig) *Engine {
	weighted := []WeightedScorer{
		{Scorer: CollaborativeScorer{}, Weight: cfg.CollaborativeWeight},
		{Scorer: ContentScorer{}, Weight: cfg.ContentWeight},
		{Scorer: PopularityScorer{}, Weight: cfg.PopularityWeight},
		{Scorer: TemporalScorer{TrendingWindow: time.Duration(cfg.TrendingWindowHours) * time.Hour}, Weight: cfg.TemporalWeight},
		{Scorer: EngagementScorer{}, Weight: cfg.EngagementWeight},
	}
	return &Engine{
		store:  store,
		ranker: NewRanker(weighted, cfg.DiversityDivisor),
	}
}

// Store exposes the underlying store for ingestion and seeding callers.
func (e *Engine) Store() *Store { return e.store }

// relevantRatingThreshold is the implicit-rating cutoff above which a
// user-item pair counts as "relevant" for BuildScenarios. There is no
// held-out ground truth in a live system, so relevance is approximated
// from the matrix itself: a video the user has already rated highly is
// a video the engine should be able to recommend back to them.
const relevantRatingThreshold = 0.6

// BuildScenarios derives a leave-one-out-style offline evaluation set
// from the current user-item matrix: for every user with at least one
// highly-rated video, one scenario asks whether the ranker would
// recommend that video back to them. Used by the quality-evaluation
// scheduler to feed Evaluate without any external labelled dataset.
func (e *Engine) BuildScenarios(k int) []Scenario {
	var scenarios []Scenario
	_ = e.store.WithSnapshot(func(snap *Snapshot) error {
		for userID, row := range snap.AllRows() {
			var best string
			var bestRating float64
			for videoID, rating := range row {
				if rating > bestRating {
					bestRating = rating
					best = videoID
				}
			}
			if best == "" || bestRating < relevantRatingThreshold {
				continue
			}
			scenarios = append(scenarios, Scenario{
				UserID:   userID,
				Relevant: map[string]struct{}{best: {}},
				K:        k,
			})
		}
		return nil
	})
	return scenarios
}

// Recommend returns up to count recommended videos for userID. The five
// scorers run concurrently over the same read-locked snapshot: they are
// pure functions of the snapshot, so running them in parallel is a
// throughput optimisation with no effect on the result.
func (e *Engine) Recommend(userID string, count int) ([]models.RecommendedVideo, error) {
	start := time.Now()
	var result []models.RecommendedVideo
	err := e.store.WithSnapshot(func(snap *Snapshot) error {
		result = e.ranker.RankParallel(snap, userID, count)
		return nil
	})
	metrics.RecommendationLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RankParallel is equivalent to Rank but runs each weighted scorer in
// its own goroutine before merging, since every scorer only reads the
// snapshot. cold-start users (no history, no preference model) still
// get a result: scorers that have nothing to contribute simply return
// an empty candidate list, and the popularity scorer's library-wide
// fallback dominates the merge in that case.
func (r *Ranker) RankParallel(snap *Snapshot, userID string, n int) []models.RecommendedVideo {
	if n <= 0 {
		return nil
	}

	type scored struct {
		weight     float64
		candidates []Candidate
	}
	results := make([]scored, len(r.scorers))
	var wg sync.WaitGroup
	for i, ws := range r.scorers {
		if ws.Weight == 0 {
			continue
		}
		wg.Add(1)
		go func(i int, ws WeightedScorer) {
			defer wg.Done()
			start := time.Now()
			candidates := ws.Scorer.Score(snap, userID, n)
			metrics.ObserveScorerLatency(ws.Scorer.Name(), start)
			results[i] = scored{weight: ws.Weight, candidates: candidates}
		}(i, ws)
	}
	wg.Wait()

	user, _ := snap.User(userID)
	combined := make(map[string]float64)
	for _, res := range results {
		if len(res.candidates) == 0 {
			continue
		}
		maxScore := 0.0
		for _, c := range res.candidates {
			if c.Score > maxScore {
				maxScore = c.Score
			}
		}
		if maxScore <= 0 {
			continue
		}
		for _, c := range res.candidates {
			combined[c.VideoID] += res.weight * (c.Score / maxScore)
		}
	}

	ranked := make([]Candidate, 0, len(combined))
	for videoID, score := range combined {
		if user != nil && user.HasWatched(videoID) {
			continue
		}
		ranked = append(ranked, Candidate{VideoID: videoID, Score: score})
	}
	sortCandidates(ranked)

	diversified := r.diversify(snap, ranked, n)
	if len(diversified) > n {
		diversified = diversified[:n]
	}

	out := make([]models.RecommendedVideo, 0, len(diversified))
	for _, c := range diversified {
		video, ok := snap.Video(c.VideoID)
		if !ok {
			continue
		}
		out = append(out, toRecommendedVideo(video))
	}
	return out
}

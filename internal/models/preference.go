package models

import (
	"math"
	"time"
)

// Affinity stores a raw accumulated value and the timestamp it was last
// touched by a write. Readers compute the decayed value on demand; a
// read never mutates the entry, so the recommendation path (read-only,
// shared access) never has to take a writer lock just to "apply decay
// before scoring". A write first folds the decayed value in, then adds
// its own delta, then re-stamps LastTouched to now.
type Affinity struct {
	Value       float64
	LastTouched time.Time
}

// Decayed returns the affinity's value decayed exponentially to "now":
// value * exp(-lambda * days-elapsed).
func (a Affinity) Decayed(now time.Time, lambdaPerDay float64) float64 {
	if a.LastTouched.IsZero() {
		return a.Value
	}
	days := now.Sub(a.LastTouched).Hours() / 24.0
	if days <= 0 {
		return a.Value
	}
	return a.Value * math.Exp(-lambdaPerDay*days)
}

// ApplyDelta folds in decay relative to `now`, adds delta, and re-stamps
// LastTouched. The result is never allowed to go negative (affinities
// are never negative; decayed but not zeroed).
func (a Affinity) ApplyDelta(now time.Time, lambdaPerDay, delta float64) Affinity {
	value := a.Decayed(now, lambdaPerDay) + delta
	if value < 0 {
		value = 0
	}
	return Affinity{Value: value, LastTouched: now}
}

// maxPositiveEmbeddings bounds the rolling window EmbeddingCentroid is
// averaged over.
const maxPositiveEmbeddings = 50

// PreferenceModel holds one user's derived recommendation-relevant
// aggregates: category and tag affinities, an embedding centroid over
// recently liked videos, interaction-rate patterns, and an hour-of-day
// watch histogram.
type PreferenceModel struct {
	UserID             string
	CategoryAffinities map[string]Affinity
	TagAffinities      map[string]Affinity
	EmbeddingCentroid  []float64 // mean of embeddings of last 50 positively-rated videos
	Patterns           InteractionPatterns
	HourHistogram      [24]int64

	recentEmbeddings [][]float64 // ring buffer feeding EmbeddingCentroid, oldest first
}

// AddPositiveEmbedding folds embedding into the rolling window of the
// last maxPositiveEmbeddings positively-rated videos and recomputes
// EmbeddingCentroid as their mean. A nil or empty embedding is a no-op:
// not every video carries a content vector.
func (p *PreferenceModel) AddPositiveEmbedding(embedding []float64) {
	if len(embedding) == 0 {
		return
	}
	p.recentEmbeddings = append(p.recentEmbeddings, embedding)
	if len(p.recentEmbeddings) > maxPositiveEmbeddings {
		p.recentEmbeddings = p.recentEmbeddings[len(p.recentEmbeddings)-maxPositiveEmbeddings:]
	}

	dim := len(p.recentEmbeddings[0])
	centroid := make([]float64, dim)
	for _, e := range p.recentEmbeddings {
		for i := 0; i < dim && i < len(e); i++ {
			centroid[i] += e[i]
		}
	}
	n := float64(len(p.recentEmbeddings))
	for i := range centroid {
		centroid[i] /= n
	}
	p.EmbeddingCentroid = centroid
}

// NewPreferenceModel returns an empty preference model for a new user.
func NewPreferenceModel(userID string) *PreferenceModel {
	return &PreferenceModel{
		UserID:             userID,
		CategoryAffinities: make(map[string]Affinity),
		TagAffinities:      make(map[string]Affinity),
	}
}

// affinityRank pairs a name with its decayed affinity value for sorting.
type affinityRank struct {
	name  string
	value float64
}

// TopCategories returns up to n categories with the highest decayed
// affinity, descending by affinity then ascending by name for
// determinism.
func (p *PreferenceModel) TopCategories(now time.Time, lambdaPerDay float64, n int) []string {
	ranked := make([]affinityRank, 0, len(p.CategoryAffinities))
	for name, aff := range p.CategoryAffinities {
		ranked = append(ranked, affinityRank{name, aff.Decayed(now, lambdaPerDay)})
	}
	sortAffinityRanks(ranked)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	names := make([]string, len(ranked))
	for i, r := range ranked {
		names[i] = r.name
	}
	return names
}

func sortAffinityRanks(ranked []affinityRank) {
	for i := 1; i < len(ranked); i++ {
		j := i
		for j > 0 && affinityRankLess(ranked[j], ranked[j-1]) {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
			j--
		}
	}
}

func affinityRankLess(a, b affinityRank) bool {
	if a.value != b.value {
		return a.value > b.value
	}
	return a.name < b.name
}

// Clone returns a deep copy safe to hand to a read-only snapshot consumer.
func (p *PreferenceModel) Clone() *PreferenceModel {
	if p == nil {
		return nil
	}
	cp := *p
	cp.CategoryAffinities = make(map[string]Affinity, len(p.CategoryAffinities))
	for k, v := range p.CategoryAffinities {
		cp.CategoryAffinities[k] = v
	}
	cp.TagAffinities = make(map[string]Affinity, len(p.TagAffinities))
	for k, v := range p.TagAffinities {
		cp.TagAffinities[k] = v
	}
	cp.EmbeddingCentroid = append([]float64(nil), p.EmbeddingCentroid...)
	cp.recentEmbeddings = append([][]float64(nil), p.recentEmbeddings...)
	return &cp
}

package engine

import (
	"math"
	"sort"

	"github.com/subculture-collective/recaster/internal/models"
)

// WeightedScorer pairs a Scorer with its contribution to the hybrid sum.
type WeightedScorer struct {
	Scorer Scorer
	Weight float64
}

// Ranker merges candidate lists from a fixed ordered sequence of
// weighted scorers into a single diversified top-N recommendation list.
type Ranker struct {
	scorers          []WeightedScorer
	diversityDivisor int
}

// NewRanker builds a ranker over the five hybrid scorers, weighted per
// the supplied config, plus a diversity divisor controlling the
// per-channel cap (max results per channel = ceil(N / divisor)).
func NewRanker(scorers []WeightedScorer, diversityDivisor int) *Ranker {
	if diversityDivisor <= 0 {
		diversityDivisor = 3
	}
	return &Ranker{scorers: scorers, diversityDivisor: diversityDivisor}
}

// Rank produces the final top-n recommended videos for userID.
func (r *Ranker) Rank(snap *Snapshot, userID string, n int) []models.RecommendedVideo {
	if n <= 0 {
		return nil
	}

	user, _ := snap.User(userID)
	combined := make(map[string]float64)

	for _, ws := range r.scorers {
		if ws.Weight == 0 {
			continue
		}
		candidates := ws.Scorer.Score(snap, userID, n)
		if len(candidates) == 0 {
			continue
		}
		maxScore := 0.0
		for _, c := range candidates {
			if c.Score > maxScore {
				maxScore = c.Score
			}
		}
		if maxScore <= 0 {
			continue
		}
		for _, c := range candidates {
			combined[c.VideoID] += ws.Weight * (c.Score / maxScore)
		}
	}

	ranked := make([]Candidate, 0, len(combined))
	for videoID, score := range combined {
		if user != nil && user.HasWatched(videoID) {
			// Defense in depth: scorers already exclude watch history,
			// but the merge stage re-checks before anything is returned.
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

// diversify enforces that no single channel contributes more than
// ceil(n / diversityDivisor) entries among the returned results,
// demoting excess videos to the end while preserving their relative
// order, then backfilling from the demoted tail if the cap left room
// (e.g. because fewer than n distinct channels exist).
func (r *Ranker) diversify(snap *Snapshot, ranked []Candidate, n int) []Candidate {
	perChannelCap := int(math.Ceil(float64(n) / float64(r.diversityDivisor)))
	if perChannelCap <= 0 {
		perChannelCap = 1
	}

	channelCount := make(map[string]int)
	var accepted, overflow []Candidate
	for _, c := range ranked {
		video, ok := snap.Video(c.VideoID)
		if !ok {
			continue
		}
		if channelCount[video.ChannelID] < perChannelCap {
			accepted = append(accepted, c)
			channelCount[video.ChannelID]++
		} else {
			overflow = append(overflow, c)
		}
	}

	if len(accepted) < n {
		need := n - len(accepted)
		if need > len(overflow) {
			need = len(overflow)
		}
		accepted = append(accepted, overflow[:need]...)
	}
	return accepted
}

func sortCandidates(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].VideoID < candidates[j].VideoID
	})
}

func toRecommendedVideo(v *models.Video) models.RecommendedVideo {
	categories := make([]string, 0, len(v.Categories))
	for c := range v.Categories {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return models.RecommendedVideo{
		ID:         v.ID,
		Title:      v.Title,
		ChannelID:  v.ChannelID,
		Categories: categories,
		Metrics: models.VideoMetricsSummary{
			Views:        v.Metrics.Views,
			Likes:        v.Metrics.Likes,
			CommentCount: v.Metrics.Comments,
		},
	}
}

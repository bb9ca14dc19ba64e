package engine

import (
	"math"
	"sort"
	"time"

	"github.com/subculture-collective/recaster/internal/models"
)

// Candidate is one (video_id, raw_score) pair a scorer produces.
type Candidate struct {
	VideoID string
	Score   float64
}

// Scorer satisfies the capability score(user_id, n, snapshot) ->
// list<(video_id, score)>, per the spec's "dynamic dispatch over
// scorers" design note: the ranker is parametric over a fixed ordered
// sequence of scorers with associated weights, so strategies can be
// added or removed without touching the ranker.
type Scorer interface {
	Name() string
	Score(snap *Snapshot, userID string, n int) []Candidate
}

func topN(candidates []Candidate, n int) []Candidate {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].VideoID < candidates[j].VideoID
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}

// candidateBudget is the maximum candidate list size every scorer
// returns: up to 4N, per spec 4.4.
func candidateBudget(n int) int { return 4 * n }

func unseenVideos(snap *Snapshot, user *models.User) []*models.Video {
	videos := snap.Videos()
	out := make([]*models.Video, 0, len(videos))
	for _, v := range videos {
		if user == nil || !user.HasWatched(v.ID) {
			out = append(out, v)
		}
	}
	return out
}

func cosineSparse(a, b map[string]float64) float64 {
	var dot, na, nb float64
	for k, av := range a {
		na += av * av
		if bv, ok := b[k]; ok {
			dot += av * bv
		}
	}
	for _, bv := range b {
		nb += bv * bv
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func cosineDense(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func sharedKeys(a, b map[string]float64) int {
	count := 0
	for k := range a {
		if _, ok := b[k]; ok {
			count++
		}
	}
	return count
}

// ---------------------------------------------------------------------
// Collaborative filtering (4.4.1)
// ---------------------------------------------------------------------

const (
	minQualifyingPeers = 5
	maxPeers           = 20
	minSharedRatings   = 2
)

type CollaborativeScorer struct{}

func (CollaborativeScorer) Name() string { return "collaborative" }

func (CollaborativeScorer) Score(snap *Snapshot, userID string, n int) []Candidate {
	rows := snap.AllRows()
	targetRow, ok := rows[userID]
	if !ok || len(targetRow) == 0 {
		return nil
	}

	type peer struct {
		id    string
		sim   float64
		count int
	}
	var peers []peer
	for otherID, otherRow := range rows {
		if otherID == userID {
			continue
		}
		if sharedKeys(targetRow, otherRow) < minSharedRatings {
			continue
		}
		sim := cosineSparse(targetRow, otherRow)
		if sim <= 0 {
			continue
		}
		peers = append(peers, peer{id: otherID, sim: sim, count: len(otherRow)})
	}
	if len(peers) < minQualifyingPeers {
		return nil
	}

	sort.Slice(peers, func(i, j int) bool {
		if peers[i].sim != peers[j].sim {
			return peers[i].sim > peers[j].sim
		}
		if peers[i].count != peers[j].count {
			return peers[i].count > peers[j].count
		}
		return peers[i].id < peers[j].id
	})
	if len(peers) > maxPeers {
		peers = peers[:maxPeers]
	}

	numerator := make(map[string]float64)
	denominator := make(map[string]float64)
	for _, p := range peers {
		row := rows[p.id]
		for videoID, rating := range row {
			if _, alreadyRated := targetRow[videoID]; alreadyRated {
				continue
			}
			numerator[videoID] += p.sim * rating
			denominator[videoID] += math.Abs(p.sim)
		}
	}

	var out []Candidate
	for videoID, num := range numerator {
		den := denominator[videoID]
		if den == 0 {
			continue
		}
		out = append(out, Candidate{VideoID: videoID, Score: num / den})
	}
	return topN(out, candidateBudget(n))
}

// ---------------------------------------------------------------------
// Content-based (4.4.2)
// ---------------------------------------------------------------------

const topCategoryCount = 10

type ContentScorer struct{}

func (ContentScorer) Name() string { return "content" }

func (ContentScorer) Score(snap *Snapshot, userID string, n int) []Candidate {
	user, _ := snap.User(userID)
	pref := snap.Preference(userID)
	if pref == nil {
		return nil
	}

	lambda := snap.DecayLambda()
	now := snap.Now()
	topCategories := pref.TopCategories(now, lambda, topCategoryCount)
	if len(topCategories) == 0 && pref.EmbeddingCentroid == nil {
		return nil
	}
	categorySet := make(map[string]struct{}, len(topCategories))
	for _, c := range topCategories {
		categorySet[c] = struct{}{}
	}

	var out []Candidate
	for _, v := range unseenVideos(snap, user) {
		var score float64
		for c := range v.Categories {
			if _, ok := categorySet[c]; ok {
				score += pref.CategoryAffinities[c].Decayed(now, lambda)
			}
		}
		for t := range v.Tags {
			if aff, ok := pref.TagAffinities[t]; ok {
				score += 0.5 * aff.Decayed(now, lambda)
			}
		}
		if user != nil && user.IsSubscribed(v.ChannelID) {
			score += 0.3
		}
		if v.Embedding != nil && pref.EmbeddingCentroid != nil {
			score += 0.4 * cosineDense(pref.EmbeddingCentroid, v.Embedding)
		}
		if score > 0 {
			out = append(out, Candidate{VideoID: v.ID, Score: score})
		}
	}
	return topN(out, candidateBudget(n))
}

// ---------------------------------------------------------------------
// Popularity (4.4.3)
// ---------------------------------------------------------------------

type PopularityScorer struct{}

func (PopularityScorer) Name() string { return "popularity" }

func (PopularityScorer) Score(snap *Snapshot, userID string, n int) []Candidate {
	user, _ := snap.User(userID)
	now := snap.Now()

	var out []Candidate
	for _, v := range unseenVideos(snap, user) {
		views := v.Metrics.Views
		if views < 1 {
			views = 1
		}
		likeRatio := v.Metrics.LikeRatio()
		daysSinceUpload := now.Sub(v.UploadedAt).Hours() / 24.0
		if daysSinceUpload < 1.0 {
			daysSinceUpload = 1.0
		}
		recencyFactor := 1.0 + math.Min(3.0, 30.0/daysSinceUpload)
		score := (math.Log10(float64(views))*0.6 + likeRatio*0.4) * recencyFactor
		out = append(out, Candidate{VideoID: v.ID, Score: score})
	}
	return topN(out, candidateBudget(n))
}

// ---------------------------------------------------------------------
// Temporal (4.4.4)
// ---------------------------------------------------------------------

type TemporalScorer struct {
	TrendingWindow time.Duration
}

func (TemporalScorer) Name() string { return "temporal" }

func (ts TemporalScorer) Score(snap *Snapshot, userID string, n int) []Candidate {
	user, _ := snap.User(userID)
	pref := snap.Preference(userID)
	now := snap.Now()
	currentHour := now.Hour()

	var maxHour int64
	if pref != nil {
		for _, c := range pref.HourHistogram {
			if c > maxHour {
				maxHour = c
			}
		}
	}

	window := ts.TrendingWindow
	if window <= 0 {
		window = 24 * time.Hour
	}

	var out []Candidate
	for _, v := range unseenVideos(snap, user) {
		var score float64
		age := now.Sub(v.UploadedAt)
		subscribed := user != nil && user.IsSubscribed(v.ChannelID)
		switch {
		case age < 24*time.Hour && subscribed:
			score += 5.0
		case age < 3*24*time.Hour && subscribed:
			score += 3.0
		case age < 7*24*time.Hour:
			score += 2.0
		}

		if pref != nil && maxHour > 0 {
			score += math.Min(1.0, float64(pref.HourHistogram[currentHour])/float64(maxHour))
		}

		daysSinceUpload := age.Hours() / 24.0
		if daysSinceUpload < 1.0 {
			daysSinceUpload = 1.0
		}
		dailyAverage := float64(v.Metrics.Views) / daysSinceUpload
		windowViews := snap.ViewsInWindow(v.ID, window)
		if dailyAverage > 0 && float64(windowViews) > 3.0*dailyAverage {
			score += 1.5
		}

		if score > 0 {
			out = append(out, Candidate{VideoID: v.ID, Score: score})
		}
	}
	return topN(out, candidateBudget(n))
}

// ---------------------------------------------------------------------
// Engagement (4.4.5)
// ---------------------------------------------------------------------

type EngagementScorer struct{}

func (EngagementScorer) Name() string { return "engagement" }

func (EngagementScorer) Score(snap *Snapshot, userID string, n int) []Candidate {
	user, _ := snap.User(userID)
	pref := snap.Preference(userID)
	if pref == nil {
		return nil
	}
	p := pref.Patterns

	var out []Candidate
	for _, v := range unseenVideos(snap, user) {
		m := v.Metrics
		var q models.InteractionPatterns
		q.AvgWatchRatio = m.AvgWatchRatio
		if m.Likes+m.Dislikes > 0 {
			q.LikeRate = float64(m.Likes) / float64(m.Likes+m.Dislikes)
		}
		if m.Views > 0 {
			q.CommentRate = float64(m.Comments) / float64(m.Views)
			q.ShareRate = float64(m.Shares) / float64(m.Views)
		}
		q.RewatchRate = m.RewatchRate

		var score float64
		score += 2.0 * (1 - math.Abs(p.AvgWatchRatio-q.AvgWatchRatio))
		score += 1.5 * (1 - math.Abs(p.LikeRate-q.LikeRate))
		if q.CommentRate > 0 {
			score += math.Min(1.0, q.CommentRate*10) * 1.0
		}
		if p.RewatchRate > 0.1 {
			score += 1.2 * (1 - math.Abs(p.RewatchRate-q.RewatchRate))
		}
		if m.CompletionRate > 0.7 {
			score += 0.8
		}
		if q.ShareRate > 0 {
			score += math.Min(1.0, q.ShareRate*10) * 1.0
		}

		if score > 0 {
			out = append(out, Candidate{VideoID: v.ID, Score: score})
		}
	}
	return topN(out, candidateBudget(n))
}

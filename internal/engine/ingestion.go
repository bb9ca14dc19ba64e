package engine

import (
	"fmt"
	"time"

	"github.com/subculture-collective/recaster/internal/models"
)

// Decay parameters and affinity deltas applied per interaction kind.
// alpha is the base unit the watch/like/comment/share deltas scale by;
// it is always 1.0 per spec, kept as a named constant for readability.
const (
	alpha                = 1.0
	watchAffinityDelta   = 1.0 * alpha
	likeAffinityDelta    = 1.5 * alpha
	dislikeAffinityDelta = -0.5 * alpha
	commentAffinityDelta = 0.8 * alpha
	shareAffinityDelta   = 1.0 * alpha
)

// Apply applies a single interaction event to the entity store, matrix,
// and preference model atomically, following the fixed lock order
// users -> videos -> matrix -> preferences and acquiring write locks
// only on the stores the event actually mutates. Re-applying an event
// with an identical idempotency key is a no-op.
func (st *Store) Apply(ev models.InteractionEvent) error {
	if err := validateEvent(ev); err != nil {
		return err
	}

	key := ev.Key()
	st.appliedMu.Lock()
	if _, seen := st.applied[key]; seen {
		st.appliedMu.Unlock()
		return nil
	}
	st.appliedMu.Unlock()

	var applyErr error
	switch ev.Kind {
	case models.EventWatch:
		applyErr = st.applyWatch(ev)
	case models.EventLike:
		applyErr = st.applyLikeDislike(ev, true)
	case models.EventDislike:
		applyErr = st.applyLikeDislike(ev, false)
	case models.EventComment:
		applyErr = st.applyComment(ev)
	case models.EventShare:
		applyErr = st.applyShare(ev)
	case models.EventSubscribe:
		st.applySubscription(ev, true)
	case models.EventUnsubscribe:
		st.applySubscription(ev, false)
	default:
		return fmt.Errorf("%w: unknown event kind %q", models.ErrValidation, ev.Kind)
	}
	if applyErr != nil {
		return applyErr
	}

	st.appliedMu.Lock()
	st.applied[key] = struct{}{}
	st.appliedMu.Unlock()
	st.recordEvent(ev)
	return nil
}

func validateEvent(ev models.InteractionEvent) error {
	if ev.UserID == "" {
		return fmt.Errorf("%w: missing user_id", models.ErrValidation)
	}
	switch ev.Kind {
	case models.EventSubscribe, models.EventUnsubscribe:
		if ev.ChannelID == "" {
			return fmt.Errorf("%w: missing channel_id", models.ErrValidation)
		}
	default:
		if ev.VideoID == "" {
			return fmt.Errorf("%w: missing video_id", models.ErrValidation)
		}
	}
	if ev.Kind == models.EventWatch && ev.WatchSeconds < 0 {
		return fmt.Errorf("%w: negative watch_seconds", models.ErrValidation)
	}
	if ev.OccurredAt.IsZero() {
		return fmt.Errorf("%w: missing occurred_at", models.ErrValidation)
	}
	return nil
}

// ensureUser returns the user, lazily creating a minimal record if
// absent. Caller must hold st.usersMu for writing.
func (st *Store) ensureUser(id string, now time.Time) *models.User {
	u, ok := st.users[id]
	if !ok {
		u = &models.User{
			ID:            id,
			Subscriptions: make(map[string]struct{}),
			CreatedAt:     now,
		}
		st.users[id] = u
	}
	return u
}

// ensureVideo returns the video, lazily creating a minimal record if
// absent. Caller must hold st.videosMu for writing.
func (st *Store) ensureVideo(id string, now time.Time) *models.Video {
	v, ok := st.videos[id]
	if !ok {
		v = &models.Video{
			ID:         id,
			Categories: make(map[string]struct{}),
			Tags:       make(map[string]struct{}),
			UploadedAt: now,
		}
		st.videos[id] = v
	}
	return v
}

func (st *Store) ensurePreference(userID string) *models.PreferenceModel {
	p, ok := st.prefs[userID]
	if !ok {
		p = models.NewPreferenceModel(userID)
		st.prefs[userID] = p
	}
	return p
}

func completionRatio(watchSeconds float64, duration time.Duration) float64 {
	if duration <= 0 {
		return 0
	}
	r := watchSeconds / duration.Seconds()
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

func (st *Store) applyWatch(ev models.InteractionEvent) error {
	st.usersMu.Lock()
	defer st.usersMu.Unlock()
	st.videosMu.Lock()
	defer st.videosMu.Unlock()
	st.matrixMu.Lock()
	defer st.matrixMu.Unlock()
	st.prefsMu.Lock()
	defer st.prefsMu.Unlock()

	user := st.ensureUser(ev.UserID, ev.OccurredAt)
	video := st.ensureVideo(ev.VideoID, ev.OccurredAt)

	rewatch := user.HasWatched(ev.VideoID)
	ratio := completionRatio(ev.WatchSeconds, video.Duration)

	user.WatchHistory = append(user.WatchHistory, models.WatchEvent{
		VideoID:         ev.VideoID,
		Timestamp:       ev.OccurredAt,
		WatchSeconds:    ev.WatchSeconds,
		CompletionRatio: ratio,
	})

	m := &video.Metrics
	n := float64(m.Views)
	m.Views++
	m.AvgWatchTime = (m.AvgWatchTime*n + ev.WatchSeconds) / float64(m.Views)
	m.AvgWatchRatio = (m.AvgWatchRatio*n + ratio) / float64(m.Views)
	if ratio >= 0.9 {
		m.CompletionRate = (m.CompletionRate*n + 1) / float64(m.Views)
	} else {
		m.CompletionRate = (m.CompletionRate * n) / float64(m.Views)
	}
	if rewatch {
		m.RewatchRate = (m.RewatchRate*n + 1) / float64(m.Views)
	} else {
		m.RewatchRate = (m.RewatchRate * n) / float64(m.Views)
	}
	st.viewLog[ev.VideoID] = append(st.viewLog[ev.VideoID], ev.OccurredAt)

	st.setRatingInput(ev.UserID, ev.VideoID, func(in *models.RatingInputs) {
		if ratio > in.CompletionRatio {
			in.CompletionRatio = ratio
		}
	})
	st.recomputeRatingLocked(user, ev.VideoID)

	pref := st.ensurePreference(ev.UserID)
	st.addCategoryAffinityLocked(pref, video, ev.OccurredAt, watchAffinityDelta*ratio)
	hour := ev.OccurredAt.Hour()
	pref.HourHistogram[hour]++
	watchCount := float64(len(user.WatchHistory))
	pref.Patterns.AvgWatchRatio = (pref.Patterns.AvgWatchRatio*(watchCount-1) + ratio) / watchCount
	return nil
}

func (st *Store) applyLikeDislike(ev models.InteractionEvent, positive bool) error {
	st.usersMu.Lock()
	defer st.usersMu.Unlock()
	st.videosMu.Lock()
	defer st.videosMu.Unlock()
	st.matrixMu.Lock()
	defer st.matrixMu.Unlock()
	st.prefsMu.Lock()
	defer st.prefsMu.Unlock()

	user := st.ensureUser(ev.UserID, ev.OccurredAt)
	video := st.ensureVideo(ev.VideoID, ev.OccurredAt)

	candidate := video.Metrics
	if positive {
		candidate.Likes++
	} else {
		candidate.Dislikes++
	}
	if candidate.Likes+candidate.Dislikes > candidate.Views {
		return fmt.Errorf("%w: likes+dislikes would exceed views for video %q", models.ErrInternal, ev.VideoID)
	}
	video.Metrics = candidate

	st.setRatingInput(ev.UserID, ev.VideoID, func(in *models.RatingInputs) {
		in.Liked = positive
	})
	st.recomputeRatingLocked(user, ev.VideoID)

	pref := st.ensurePreference(ev.UserID)
	delta := likeAffinityDelta
	if !positive {
		delta = dislikeAffinityDelta
	}
	st.addCategoryAffinityLocked(pref, video, ev.OccurredAt, delta)
	if positive {
		pref.AddPositiveEmbedding(video.Embedding)
	}

	likeEvents := float64(video.Metrics.Likes + video.Metrics.Dislikes)
	if likeEvents > 0 {
		pref.Patterns.LikeRate = float64(video.Metrics.Likes) / likeEvents
	}
	return nil
}

func (st *Store) applyComment(ev models.InteractionEvent) error {
	st.usersMu.Lock()
	defer st.usersMu.Unlock()
	st.videosMu.Lock()
	defer st.videosMu.Unlock()
	st.matrixMu.Lock()
	defer st.matrixMu.Unlock()
	st.prefsMu.Lock()
	defer st.prefsMu.Unlock()

	user := st.ensureUser(ev.UserID, ev.OccurredAt)
	video := st.ensureVideo(ev.VideoID, ev.OccurredAt)
	video.Metrics.Comments++

	st.setRatingInput(ev.UserID, ev.VideoID, func(in *models.RatingInputs) {
		in.Commented = true
	})
	st.recomputeRatingLocked(user, ev.VideoID)

	pref := st.ensurePreference(ev.UserID)
	st.addCategoryAffinityLocked(pref, video, ev.OccurredAt, commentAffinityDelta)
	return nil
}

func (st *Store) applyShare(ev models.InteractionEvent) error {
	st.usersMu.Lock()
	defer st.usersMu.Unlock()
	st.videosMu.Lock()
	defer st.videosMu.Unlock()
	st.matrixMu.Lock()
	defer st.matrixMu.Unlock()
	st.prefsMu.Lock()
	defer st.prefsMu.Unlock()

	user := st.ensureUser(ev.UserID, ev.OccurredAt)
	video := st.ensureVideo(ev.VideoID, ev.OccurredAt)
	video.Metrics.Shares++

	st.setRatingInput(ev.UserID, ev.VideoID, func(in *models.RatingInputs) {
		in.Shared = true
	})
	st.recomputeRatingLocked(user, ev.VideoID)

	pref := st.ensurePreference(ev.UserID)
	st.addCategoryAffinityLocked(pref, video, ev.OccurredAt, shareAffinityDelta)
	return nil
}

func (st *Store) applySubscription(ev models.InteractionEvent, subscribe bool) {
	st.usersMu.Lock()
	defer st.usersMu.Unlock()
	st.videosMu.Lock()
	defer st.videosMu.Unlock()
	st.matrixMu.Lock()
	defer st.matrixMu.Unlock()

	user := st.ensureUser(ev.UserID, ev.OccurredAt)
	if _, ok := st.channels[ev.ChannelID]; !ok {
		st.channels[ev.ChannelID] = &models.Channel{ID: ev.ChannelID, CreatedAt: ev.OccurredAt}
	}
	if subscribe {
		user.Subscriptions[ev.ChannelID] = struct{}{}
	} else {
		delete(user.Subscriptions, ev.ChannelID)
	}

	// Ratings for every video of this channel the user has already rated
	// must reflect the new subscription status.
	row := st.matrixRows[ev.UserID]
	for videoID := range row {
		if v, ok := st.videos[videoID]; ok && v.ChannelID == ev.ChannelID {
			st.recomputeRatingLocked(user, videoID)
		}
	}
}

// setRatingInput mutates the stored aggregated rating inputs for
// (userID, videoID). Caller must hold st.matrixMu for writing.
func (st *Store) setRatingInput(userID, videoID string, mutate func(*models.RatingInputs)) {
	row, ok := st.ratingInputs[userID]
	if !ok {
		row = make(map[string]models.RatingInputs)
		st.ratingInputs[userID] = row
	}
	in := row[videoID]
	mutate(&in)
	row[videoID] = in
}

// recomputeRatingLocked recomputes and stores the implicit rating for
// (user.ID, videoID) from the stored aggregated inputs plus the user's
// current subscription status. Caller must hold st.usersMu, st.videosMu,
// and st.matrixMu for writing (or for reading the user/video, at
// minimum read access, since this helper only writes the matrix).
func (st *Store) recomputeRatingLocked(user *models.User, videoID string) {
	in := st.ratingInputs[user.ID][videoID]
	if video, ok := st.videos[videoID]; ok {
		in.SubscribedChannel = user.IsSubscribed(video.ChannelID)
	}
	rating := models.ComputeRating(in)

	row, ok := st.matrixRows[user.ID]
	if !ok {
		row = make(map[string]float64)
		st.matrixRows[user.ID] = row
	}
	row[videoID] = rating
}

// addCategoryAffinityLocked adds delta to the preference model's
// affinity for every category (and half-weighted for every tag) of
// video, applying lazy decay first. Caller must hold st.prefsMu for
// writing.
func (st *Store) addCategoryAffinityLocked(pref *models.PreferenceModel, video *models.Video, now time.Time, delta float64) {
	lambda := st.decayLambda
	for category := range video.Categories {
		pref.CategoryAffinities[category] = pref.CategoryAffinities[category].ApplyDelta(now, lambda, delta)
	}
	for tag := range video.Tags {
		pref.TagAffinities[tag] = pref.TagAffinities[tag].ApplyDelta(now, lambda, delta*0.5)
	}
}

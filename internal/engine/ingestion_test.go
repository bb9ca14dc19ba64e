package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subculture-collective/recaster/internal/models"
)

func watchEvent(userID, videoID string, watchSeconds float64, at time.Time) models.InteractionEvent {
	return models.InteractionEvent{
		UserID:       userID,
		VideoID:      videoID,
		Kind:         models.EventWatch,
		OccurredAt:   at,
		WatchSeconds: watchSeconds,
	}
}

func TestApplyRejectsMissingUserID(t *testing.T) {
	st := NewStore(1.0 / 30.0)
	err := st.Apply(models.InteractionEvent{VideoID: "v1", Kind: models.EventWatch, OccurredAt: time.Now()})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestApplyRejectsMissingVideoIDForNonSubscriptionEvents(t *testing.T) {
	st := NewStore(1.0 / 30.0)
	err := st.Apply(models.InteractionEvent{UserID: "u1", Kind: models.EventLike, OccurredAt: time.Now()})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestApplyRejectsMissingChannelIDForSubscriptionEvents(t *testing.T) {
	st := NewStore(1.0 / 30.0)
	err := st.Apply(models.InteractionEvent{UserID: "u1", Kind: models.EventSubscribe, OccurredAt: time.Now()})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestApplyRejectsNegativeWatchSeconds(t *testing.T) {
	st := NewStore(1.0 / 30.0)
	err := st.Apply(watchEvent("u1", "v1", -5, time.Now()))
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestApplyRejectsMissingOccurredAt(t *testing.T) {
	st := NewStore(1.0 / 30.0)
	err := st.Apply(models.InteractionEvent{UserID: "u1", VideoID: "v1", Kind: models.EventWatch})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestApplyIsIdempotent(t *testing.T) {
	st := NewStore(1.0 / 30.0)
	st.CreateOrUpdateVideo(&models.Video{ID: "v1", Duration: 100 * time.Second})
	now := time.Now()
	ev := watchEvent("u1", "v1", 50, now)

	require.NoError(t, st.Apply(ev))
	require.NoError(t, st.Apply(ev))

	video, ok := st.GetVideo("v1")
	require.True(t, ok)
	assert.Equal(t, int64(1), video.Metrics.Views, "replaying the identical event must not double-count")
}

func TestApplyWatchCreatesUserAndVideoLazily(t *testing.T) {
	st := NewStore(1.0 / 30.0)
	now := time.Now()
	require.NoError(t, st.Apply(watchEvent("u1", "v1", 30, now)))

	user, ok := st.GetUser("u1")
	require.True(t, ok)
	assert.True(t, user.HasWatched("v1"))

	video, ok := st.GetVideo("v1")
	require.True(t, ok)
	assert.Equal(t, int64(1), video.Metrics.Views)
}

func TestApplyWatchUpdatesRollingAverages(t *testing.T) {
	st := NewStore(1.0 / 30.0)
	st.CreateOrUpdateVideo(&models.Video{ID: "v1", Duration: 100 * time.Second})
	now := time.Now()

	require.NoError(t, st.Apply(watchEvent("u1", "v1", 100, now)))
	require.NoError(t, st.Apply(watchEvent("u2", "v1", 0, now.Add(time.Second))))

	video, _ := st.GetVideo("v1")
	assert.InDelta(t, 0.5, video.Metrics.AvgWatchRatio, 1e-9)
}

func TestApplyLikeDislikeRejectsExceedingViews(t *testing.T) {
	st := NewStore(1.0 / 30.0)
	st.CreateOrUpdateVideo(&models.Video{ID: "v1"})
	err := st.Apply(models.InteractionEvent{
		UserID: "u1", VideoID: "v1", Kind: models.EventLike, OccurredAt: time.Now(),
	})
	assert.ErrorIs(t, err, models.ErrInternal)
}

func TestApplyLikeRaisesImplicitRating(t *testing.T) {
	st := NewStore(1.0 / 30.0)
	now := time.Now()
	st.CreateOrUpdateVideo(&models.Video{ID: "v1", Metrics: models.VideoMetrics{Views: 1}})
	require.NoError(t, st.Apply(models.InteractionEvent{
		UserID: "u1", VideoID: "v1", Kind: models.EventLike, OccurredAt: now,
	}))

	_, ok := st.GetUser("u1")
	require.True(t, ok)
	err := st.WithSnapshot(func(snap *Snapshot) error {
		r, ok := snap.Rating("u1", "v1")
		require.True(t, ok)
		assert.Equal(t, 0.25, r)
		return nil
	})
	require.NoError(t, err)
}

func TestApplySubscriptionRecomputesExistingRatings(t *testing.T) {
	st := NewStore(1.0 / 30.0)
	now := time.Now()
	st.CreateOrUpdateChannel(&models.Channel{ID: "c1"})
	st.CreateOrUpdateVideo(&models.Video{ID: "v1", ChannelID: "c1", Duration: 100 * time.Second})
	require.NoError(t, st.Apply(watchEvent("u1", "v1", 100, now)))

	var before, after float64
	_ = st.WithSnapshot(func(snap *Snapshot) error {
		before, _ = snap.Rating("u1", "v1")
		return nil
	})

	require.NoError(t, st.Apply(models.InteractionEvent{
		UserID: "u1", ChannelID: "c1", Kind: models.EventSubscribe, OccurredAt: now,
	}))

	_ = st.WithSnapshot(func(snap *Snapshot) error {
		after, _ = snap.Rating("u1", "v1")
		return nil
	})

	assert.Greater(t, after, before)
}

func TestApplyLikeUpdatesEmbeddingCentroid(t *testing.T) {
	st := NewStore(1.0 / 30.0)
	now := time.Now()
	st.CreateOrUpdateVideo(&models.Video{ID: "v1", Metrics: models.VideoMetrics{Views: 1}, Embedding: []float64{1, 0}})
	st.CreateOrUpdateVideo(&models.Video{ID: "v2", Metrics: models.VideoMetrics{Views: 1}, Embedding: []float64{0, 1}})

	require.NoError(t, st.Apply(models.InteractionEvent{
		UserID: "u1", VideoID: "v1", Kind: models.EventLike, OccurredAt: now,
	}))
	require.NoError(t, st.Apply(models.InteractionEvent{
		UserID: "u1", VideoID: "v2", Kind: models.EventLike, OccurredAt: now,
	}))

	err := st.WithSnapshot(func(snap *Snapshot) error {
		pref := snap.Preference("u1")
		require.NotNil(t, pref)
		require.Len(t, pref.EmbeddingCentroid, 2)
		assert.InDelta(t, 0.5, pref.EmbeddingCentroid[0], 1e-9)
		assert.InDelta(t, 0.5, pref.EmbeddingCentroid[1], 1e-9)
		return nil
	})
	require.NoError(t, err)
}

func TestApplyDislikeDoesNotUpdateEmbeddingCentroid(t *testing.T) {
	st := NewStore(1.0 / 30.0)
	now := time.Now()
	st.CreateOrUpdateVideo(&models.Video{ID: "v1", Metrics: models.VideoMetrics{Views: 1}, Embedding: []float64{1, 0}})

	require.NoError(t, st.Apply(models.InteractionEvent{
		UserID: "u1", VideoID: "v1", Kind: models.EventDislike, OccurredAt: now,
	}))

	err := st.WithSnapshot(func(snap *Snapshot) error {
		pref := snap.Preference("u1")
		require.NotNil(t, pref)
		assert.Nil(t, pref.EmbeddingCentroid, "a dislike is not a positive rating and must not seed the centroid")
		return nil
	})
	require.NoError(t, err)
}

func TestApplyUnknownEventKindRejected(t *testing.T) {
	st := NewStore(1.0 / 30.0)
	err := st.Apply(models.InteractionEvent{
		UserID: "u1", VideoID: "v1", Kind: models.EventKind("bogus"), OccurredAt: time.Now(),
	})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestApplyWatchScalesAffinityByCompletionRatio(t *testing.T) {
	st := NewStore(1.0 / 30.0)
	now := time.Now()
	st.CreateOrUpdateVideo(&models.Video{
		ID: "v1", Duration: 100 * time.Second,
		Categories: map[string]struct{}{"gaming": {}},
	})
	require.NoError(t, st.Apply(watchEvent("u1", "v1", 25, now))) // ratio 0.25

	var score float64
	_ = st.WithSnapshot(func(snap *Snapshot) error {
		pref := snap.Preference("u1")
		require.NotNil(t, pref)
		score = pref.CategoryAffinities["gaming"].Decayed(now, st.DecayLambda())
		return nil
	})
	assert.Equal(t, watchAffinityDelta*0.25, score, "a quarter-watched video should add a quarter of the full watch affinity")
}

func TestApplyCommentAddsAffinity(t *testing.T) {
	st := NewStore(1.0 / 30.0)
	now := time.Now()
	st.CreateOrUpdateVideo(&models.Video{ID: "v1", Categories: map[string]struct{}{"gaming": {}}})
	require.NoError(t, st.Apply(models.InteractionEvent{
		UserID: "u1", VideoID: "v1", Kind: models.EventComment, OccurredAt: now, CommentText: "nice",
	}))

	var score float64
	_ = st.WithSnapshot(func(snap *Snapshot) error {
		pref := snap.Preference("u1")
		require.NotNil(t, pref)
		score = pref.CategoryAffinities["gaming"].Decayed(now, st.DecayLambda())
		return nil
	})
	assert.Equal(t, commentAffinityDelta, score)
}

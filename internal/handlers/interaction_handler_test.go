package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subculture-collective/recaster/config"
	"github.com/subculture-collective/recaster/internal/engine"
	"github.com/subculture-collective/recaster/internal/models"
	"github.com/subculture-collective/recaster/internal/services"
)

func newInteractionRouter() (*gin.Engine, *engine.Engine) {
	gin.SetMode(gin.TestMode)
	eng := engine.New(config.RecommendationsConfig{PopularityWeight: 1, DecayLambdaPerDay: 1.0 / 30.0})
	svc := services.NewInteractionService(eng, nil)
	h := NewInteractionHandler(svc)

	r := gin.New()
	r.POST("/api/watch", h.Watch)
	r.POST("/api/like", h.Like)
	r.POST("/api/comment", h.Comment)
	r.POST("/api/share", h.Share)
	r.POST("/api/subscribe", h.Subscribe)
	r.POST("/api/unsubscribe", h.Unsubscribe)
	return r, eng
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestInteractionHandlerWatchAcksAndIngests(t *testing.T) {
	r, eng := newInteractionRouter()

	w := postJSON(r, "/api/watch", `{"user_id":"u1","video_id":"v1","watch_seconds":30}`)
	assert.Equal(t, http.StatusOK, w.Code)

	_, ok := eng.Store().GetVideo("v1")
	assert.True(t, ok)
}

func TestInteractionHandlerWatchRejectsMissingFields(t *testing.T) {
	r, _ := newInteractionRouter()

	w := postJSON(r, "/api/watch", `{"user_id":"u1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInteractionHandlerLikeDispatchesDislikeWhenFlagFalse(t *testing.T) {
	r, eng := newInteractionRouter()

	require.NoError(t, eng.Store().Apply(models.InteractionEvent{
		UserID: "u1", VideoID: "v1", Kind: models.EventWatch, OccurredAt: time.Now(),
	}))

	w := postJSON(r, "/api/like", `{"user_id":"u1","video_id":"v1","is_like":false}`)
	assert.Equal(t, http.StatusOK, w.Code)

	video, ok := eng.Store().GetVideo("v1")
	require.True(t, ok)
	assert.Equal(t, int64(1), video.Metrics.Dislikes)
}

func TestInteractionHandlerCommentSanitizesHTML(t *testing.T) {
	r, eng := newInteractionRouter()

	require.NoError(t, eng.Store().Apply(models.InteractionEvent{
		UserID: "u1", VideoID: "v1", Kind: models.EventWatch, OccurredAt: time.Now(),
	}))

	w := postJSON(r, "/api/comment", `{"user_id":"u1","video_id":"v1","text":"<script>alert(1)</script>nice clip"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	events := eng.Store().RecentEvents(0)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.NotContains(t, last.CommentText, "<script>")
	assert.Contains(t, last.CommentText, "nice clip")
}

func TestInteractionHandlerCommentRedactsEmailAddresses(t *testing.T) {
	r, eng := newInteractionRouter()

	require.NoError(t, eng.Store().Apply(models.InteractionEvent{
		UserID: "u1", VideoID: "v1", Kind: models.EventWatch, OccurredAt: time.Now(),
	}))

	w := postJSON(r, "/api/comment", `{"user_id":"u1","video_id":"v1","text":"reach me at viewer@example.com"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	events := eng.Store().RecentEvents(0)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.NotContains(t, last.CommentText, "viewer@example.com")
	assert.Contains(t, last.CommentText, "[REDACTED_EMAIL]")
}

func TestInteractionHandlerShareAcks(t *testing.T) {
	r, eng := newInteractionRouter()
	require.NoError(t, eng.Store().Apply(models.InteractionEvent{
		UserID: "u1", VideoID: "v1", Kind: models.EventWatch, OccurredAt: time.Now(),
	}))

	w := postJSON(r, "/api/share", `{"user_id":"u1","video_id":"v1"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestInteractionHandlerSubscribeAndUnsubscribe(t *testing.T) {
	r, eng := newInteractionRouter()

	w := postJSON(r, "/api/subscribe", `{"user_id":"u1","channel_id":"c1"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	user, ok := eng.Store().GetUser("u1")
	require.True(t, ok)
	_, subscribed := user.Subscriptions["c1"]
	assert.True(t, subscribed)

	w = postJSON(r, "/api/unsubscribe", `{"user_id":"u1","channel_id":"c1"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	user, ok = eng.Store().GetUser("u1")
	require.True(t, ok)
	_, stillSubscribed := user.Subscriptions["c1"]
	assert.False(t, stillSubscribed)
}

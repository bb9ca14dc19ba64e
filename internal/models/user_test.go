package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserHasWatched(t *testing.T) {
	u := &User{WatchHistory: []WatchEvent{{VideoID: "v1"}, {VideoID: "v2"}}}
	assert.True(t, u.HasWatched("v1"))
	assert.False(t, u.HasWatched("v3"))
}

func TestUserIsSubscribed(t *testing.T) {
	u := &User{Subscriptions: map[string]struct{}{"c1": {}}}
	assert.True(t, u.IsSubscribed("c1"))
	assert.False(t, u.IsSubscribed("c2"))
}

func TestUserRecentHistoryCapsAtMaxScoredHistory(t *testing.T) {
	u := &User{}
	for i := 0; i < MaxScoredHistory+50; i++ {
		u.WatchHistory = append(u.WatchHistory, WatchEvent{VideoID: "v", Timestamp: time.Now()})
	}
	assert.Len(t, u.RecentHistory(), MaxScoredHistory)
}

func TestUserCloneIsIndependent(t *testing.T) {
	u := &User{
		ID:            "u1",
		Subscriptions: map[string]struct{}{"c1": {}},
		WatchHistory:  []WatchEvent{{VideoID: "v1"}},
	}
	clone := u.Clone()
	clone.Subscriptions["c2"] = struct{}{}
	clone.WatchHistory[0].VideoID = "changed"

	assert.Len(t, u.Subscriptions, 1)
	assert.Equal(t, "v1", u.WatchHistory[0].VideoID)
}

func TestUserCloneNil(t *testing.T) {
	var u *User
	assert.Nil(t, u.Clone())
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVideoMetricsLikeRatio(t *testing.T) {
	m := VideoMetrics{Views: 100, Likes: 25}
	assert.Equal(t, 0.25, m.LikeRatio())
}

func TestVideoMetricsLikeRatioFloorsViewsAtOne(t *testing.T) {
	m := VideoMetrics{Views: 0, Likes: 0}
	assert.Equal(t, 0.0, m.LikeRatio())
}

func TestVideoHasCategoryAndTag(t *testing.T) {
	v := &Video{
		Categories: map[string]struct{}{"gaming": {}},
		Tags:       map[string]struct{}{"fps": {}},
	}
	assert.True(t, v.HasCategory("gaming"))
	assert.False(t, v.HasCategory("music"))
	assert.True(t, v.HasTag("fps"))
	assert.False(t, v.HasTag("rpg"))
}

func TestVideoCloneIsIndependent(t *testing.T) {
	v := &Video{
		ID:         "v1",
		Categories: map[string]struct{}{"gaming": {}},
		Tags:       map[string]struct{}{"fps": {}},
		Embedding:  []float64{1, 2, 3},
	}
	clone := v.Clone()
	clone.Categories["music"] = struct{}{}
	clone.Embedding[0] = 99

	assert.Len(t, v.Categories, 1)
	assert.Equal(t, 1.0, v.Embedding[0])
}

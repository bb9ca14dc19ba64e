package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAffinityDecayed(t *testing.T) {
	now := time.Now()
	aff := Affinity{Value: 10, LastTouched: now.Add(-30 * 24 * time.Hour)}

	decayed := aff.Decayed(now, 1.0/30.0)
	assert.InDelta(t, 10*0.3679, decayed, 0.01, "30 days at lambda=1/30 should decay by e^-1")
}

func TestAffinityDecayedZeroValueNeverDecays(t *testing.T) {
	var aff Affinity
	assert.Equal(t, 0.0, aff.Decayed(time.Now(), 1.0/30.0))
}

func TestAffinityApplyDeltaNeverNegative(t *testing.T) {
	aff := Affinity{Value: 0.1, LastTouched: time.Now()}
	result := aff.ApplyDelta(time.Now(), 1.0/30.0, -5)
	assert.Equal(t, 0.0, result.Value)
}

func TestAffinityApplyDeltaStampsNow(t *testing.T) {
	now := time.Now()
	var aff Affinity
	result := aff.ApplyDelta(now, 1.0/30.0, 1.5)
	assert.Equal(t, 1.5, result.Value)
	assert.Equal(t, now, result.LastTouched)
}

func TestTopCategoriesOrdersByDecayedAffinityThenName(t *testing.T) {
	now := time.Now()
	p := NewPreferenceModel("u1")
	p.CategoryAffinities["gaming"] = Affinity{Value: 5, LastTouched: now}
	p.CategoryAffinities["music"] = Affinity{Value: 5, LastTouched: now}
	p.CategoryAffinities["sports"] = Affinity{Value: 8, LastTouched: now}

	top := p.TopCategories(now, 1.0/30.0, 2)
	assert.Equal(t, []string{"sports", "gaming"}, top)
}

func TestTopCategoriesCapsAtN(t *testing.T) {
	now := time.Now()
	p := NewPreferenceModel("u1")
	for _, c := range []string{"a", "b", "c", "d"} {
		p.CategoryAffinities[c] = Affinity{Value: 1, LastTouched: now}
	}
	assert.Len(t, p.TopCategories(now, 1.0/30.0, 2), 2)
}

func TestPreferenceModelCloneIsIndependent(t *testing.T) {
	p := NewPreferenceModel("u1")
	p.CategoryAffinities["gaming"] = Affinity{Value: 1}
	clone := p.Clone()
	clone.CategoryAffinities["gaming"] = Affinity{Value: 99}

	assert.Equal(t, 1.0, p.CategoryAffinities["gaming"].Value)
	assert.Equal(t, 99.0, clone.CategoryAffinities["gaming"].Value)
}

func TestAddPositiveEmbeddingComputesMean(t *testing.T) {
	p := NewPreferenceModel("u1")
	p.AddPositiveEmbedding([]float64{1, 0})
	p.AddPositiveEmbedding([]float64{0, 1})

	require := assert.New(t)
	require.InDelta(0.5, p.EmbeddingCentroid[0], 1e-9)
	require.InDelta(0.5, p.EmbeddingCentroid[1], 1e-9)
}

func TestAddPositiveEmbeddingIgnoresEmpty(t *testing.T) {
	p := NewPreferenceModel("u1")
	p.AddPositiveEmbedding(nil)
	assert.Nil(t, p.EmbeddingCentroid)
}

func TestAddPositiveEmbeddingCapsWindow(t *testing.T) {
	p := NewPreferenceModel("u1")
	for i := 0; i < maxPositiveEmbeddings+10; i++ {
		p.AddPositiveEmbedding([]float64{float64(i)})
	}
	// Only the most recent maxPositiveEmbeddings contribute: their values
	// run from 10 to 59 inclusive, averaging to 34.5.
	assert.InDelta(t, 34.5, p.EmbeddingCentroid[0], 1e-9)
}

func TestComputeRatingClampsToUnitInterval(t *testing.T) {
	full := ComputeRating(RatingInputs{
		CompletionRatio:   1,
		Liked:             true,
		Commented:         true,
		Shared:            true,
		SubscribedChannel: true,
	})
	assert.Equal(t, 1.0, full)

	zero := ComputeRating(RatingInputs{})
	assert.Equal(t, 0.0, zero)
}

func TestComputeRatingWeightsCompletionHeaviest(t *testing.T) {
	completionOnly := ComputeRating(RatingInputs{CompletionRatio: 1})
	likeOnly := ComputeRating(RatingInputs{Liked: true})
	assert.Greater(t, completionOnly, likeOnly)
}

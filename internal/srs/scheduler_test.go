package srs

import (
	"testing"
	"time"

	"github.com/studyforge/srs-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestReview_InvalidQuality(t *testing.T) {
	for _, q := range []int{-1, 6, 100} {
		_, err := Review(DefaultPolicy(), NewCardState(), q, testNow)
		assert.ErrorIs(t, err, ErrInvalidQuality, "quality %d", q)
	}
}

func TestReview_FailingQualityResets(t *testing.T) {
	state := State{EaseFactor: 2.5, Interval: 15, Repetitions: 3}

	for _, q := range []int{0, 1, 2} {
		res, err := Review(DefaultPolicy(), state, q, testNow)
		require.NoError(t, err)

		assert.Equal(t, 0, res.Repetitions, "quality %d", q)
		assert.Equal(t, 1, res.Interval, "quality %d", q)
		assert.InDelta(t, 2.3, res.EaseFactor, 0.001, "quality %d applies fail penalty", q)
		assert.Equal(t, testNow.AddDate(0, 0, 1), res.NextReview)
	}
}

func TestReview_SuccessfulProgression(t *testing.T) {
	// New card, quality sequence [4,4,4]: quality 4 leaves ease at 2.5,
	// intervals follow 1, 6, round(6*2.5)=15.
	state := NewCardState()

	wantIntervals := []int{1, 6, 15}
	for i, want := range wantIntervals {
		res, err := Review(DefaultPolicy(), state, 4, testNow)
		require.NoError(t, err)

		assert.Equal(t, i+1, res.Repetitions)
		assert.Equal(t, want, res.Interval)
		assert.Equal(t, testNow.AddDate(0, 0, want), res.NextReview)

		state = State{EaseFactor: res.EaseFactor, Interval: res.Interval, Repetitions: res.Repetitions}
	}
}

func TestReview_PerfectRecallGrowsEase(t *testing.T) {
	state := NewCardState()

	res, err := Review(DefaultPolicy(), state, 5, testNow)
	require.NoError(t, err)
	assert.InDelta(t, 2.6, res.EaseFactor, 0.001)

	state = State{EaseFactor: res.EaseFactor, Interval: res.Interval, Repetitions: res.Repetitions}
	res, err = Review(DefaultPolicy(), state, 5, testNow)
	require.NoError(t, err)
	assert.InDelta(t, 2.7, res.EaseFactor, 0.001)
	assert.Equal(t, 6, res.Interval)

	state = State{EaseFactor: res.EaseFactor, Interval: res.Interval, Repetitions: res.Repetitions}
	res, err = Review(DefaultPolicy(), state, 5, testNow)
	require.NoError(t, err)
	assert.InDelta(t, 2.8, res.EaseFactor, 0.001)
	assert.Equal(t, 17, res.Interval, "round(6 * 2.8)")
}

func TestReview_HardRecallShrinksEase(t *testing.T) {
	// Quality 3: EF' = EF + (0.1 - 2*(0.08 + 2*0.02)) = EF - 0.14
	res, err := Review(DefaultPolicy(), State{EaseFactor: 2.5, Interval: 6, Repetitions: 2}, 3, testNow)
	require.NoError(t, err)

	assert.InDelta(t, 2.36, res.EaseFactor, 0.001)
	assert.Equal(t, 3, res.Repetitions)
	assert.Equal(t, 14, res.Interval, "round(6 * 2.36)")
}

func TestReview_EaseNeverBelowFloor(t *testing.T) {
	state := NewCardState()

	for i := 0; i < 50; i++ {
		res, err := Review(DefaultPolicy(), state, 0, testNow)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.EaseFactor, MinEaseFactor)
		state = State{EaseFactor: res.EaseFactor, Interval: res.Interval, Repetitions: res.Repetitions}
	}

	assert.Equal(t, MinEaseFactor, state.EaseFactor)

	// Repeated hard-but-passing recall hits the floor too.
	state = NewCardState()
	for i := 0; i < 50; i++ {
		res, err := Review(DefaultPolicy(), state, 3, testNow)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.EaseFactor, MinEaseFactor)
		state = State{EaseFactor: res.EaseFactor, Interval: res.Interval, Repetitions: res.Repetitions}
	}
}

func TestReview_EaseCapPolicy(t *testing.T) {
	policy := Policy{FailPenalty: 0.2, MaxEaseFactor: 3.0}
	state := State{EaseFactor: 2.95, Interval: 30, Repetitions: 6}

	res, err := Review(policy, state, 5, testNow)
	require.NoError(t, err)
	assert.Equal(t, 3.0, res.EaseFactor)

	// Uncapped policy keeps growing.
	res, err = Review(DefaultPolicy(), state, 5, testNow)
	require.NoError(t, err)
	assert.InDelta(t, 3.05, res.EaseFactor, 0.001)
}

func TestReview_Deterministic(t *testing.T) {
	state := State{EaseFactor: 2.17, Interval: 9, Repetitions: 4}

	first, err := Review(DefaultPolicy(), state, 4, testNow)
	require.NoError(t, err)
	second, err := Review(DefaultPolicy(), state, 4, testNow)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestMastery(t *testing.T) {
	tests := []struct {
		name        string
		repetitions int
		ease        float64
		want        models.MasteryLevel
	}{
		{"new card", 0, 2.5, models.MasteryLearning},
		{"one success", 1, 2.5, models.MasteryLearning},
		{"two successes", 2, 2.5, models.MasteryPracticing},
		{"four successes", 4, 2.8, models.MasteryPracticing},
		{"five successes high ease", 5, 2.5, models.MasteryMastered},
		{"five successes low ease", 5, 1.8, models.MasteryPracticing},
		{"many successes at floor", 10, 1.3, models.MasteryPracticing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Mastery(tt.repetitions, tt.ease))
		})
	}
}

func TestIsPassing(t *testing.T) {
	for q := 0; q <= 2; q++ {
		assert.False(t, IsPassing(q))
	}
	for q := 3; q <= 5; q++ {
		assert.True(t, IsPassing(q))
	}
}

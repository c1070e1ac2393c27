// Package srs implements the SM-2 spaced repetition scheduling algorithm.
//
// The scheduler is a pure function over (current state, quality): it performs
// no I/O, touches no clock besides the caller-supplied review time, and is
// bit-for-bit reproducible for a given input pair.
package srs

import (
	"errors"
	"math"
	"time"

	"github.com/studyforge/srs-service/internal/models"
)

const (
	// InitialEaseFactor is the ease assigned to a card on first study.
	InitialEaseFactor = 2.5

	// MinEaseFactor is the canonical SM-2 floor; ease never drops below it.
	MinEaseFactor = 1.3

	// MinInterval is the smallest scheduling interval in days.
	MinInterval = 1

	// MinQuality and MaxQuality bound the recall quality scale:
	// 0 blackout, 1-2 incorrect, 3 recalled with difficulty, 4 hesitation,
	// 5 perfect response.
	MinQuality = 0
	MaxQuality = 5

	// failThreshold separates failing recall (reset) from passing recall.
	failThreshold = 3
)

// ErrInvalidQuality is returned when quality is outside [MinQuality, MaxQuality].
var ErrInvalidQuality = errors.New("quality must be between 0 and 5")

// Policy holds the tunable parameters of the algorithm. The zero value is not
// usable; start from DefaultPolicy.
type Policy struct {
	// FailPenalty is subtracted from the ease factor on a failing quality.
	FailPenalty float64

	// MaxEaseFactor caps the ease factor when > 0. Zero means uncapped.
	MaxEaseFactor float64
}

// DefaultPolicy matches the original SuperMemo SM-2 behavior with a 0.2
// penalty on failed recall and no upper ease cap.
func DefaultPolicy() Policy {
	return Policy{FailPenalty: 0.2, MaxEaseFactor: 0}
}

// State is the scheduling state of a card going into a review.
type State struct {
	EaseFactor  float64
	Interval    int // days
	Repetitions int
}

// NewCardState returns the state of a card that has never been studied.
func NewCardState() State {
	return State{EaseFactor: InitialEaseFactor, Interval: 0, Repetitions: 0}
}

// Result is the scheduling outcome of a single review.
type Result struct {
	EaseFactor   float64
	Interval     int // days
	Repetitions  int
	NextReview   time.Time
	MasteryLevel models.MasteryLevel
}

// Review applies one quality submission to the given state and returns the
// updated scheduling parameters. now is the review time; NextReview is
// now + Interval days.
//
// quality < 3 resets repetitions to 0 and the interval to one day, and
// applies the ease penalty. quality >= 3 increments repetitions and grows
// the interval: 1 day after the first success, 6 after the second, then
// round(previousInterval * newEase).
func Review(p Policy, s State, quality int, now time.Time) (Result, error) {
	if quality < MinQuality || quality > MaxQuality {
		return Result{}, ErrInvalidQuality
	}

	var (
		ease        float64
		interval    int
		repetitions int
	)

	if quality < failThreshold {
		repetitions = 0
		interval = MinInterval
		ease = clampEase(p, s.EaseFactor-p.FailPenalty)
	} else {
		repetitions = s.Repetitions + 1
		ease = clampEase(p, nextEase(s.EaseFactor, quality))
		switch repetitions {
		case 1:
			interval = 1
		case 2:
			interval = 6
		default:
			interval = int(math.Round(float64(s.Interval) * ease))
		}
	}

	if interval < MinInterval {
		interval = MinInterval
	}

	return Result{
		EaseFactor:   ease,
		Interval:     interval,
		Repetitions:  repetitions,
		NextReview:   now.AddDate(0, 0, interval),
		MasteryLevel: Mastery(repetitions, ease),
	}, nil
}

// Mastery derives the coarse learning classification from repetitions and
// ease: learning below 2 repetitions, mastered at 5+ repetitions with ease
// of at least 2.0, practicing in between.
func Mastery(repetitions int, easeFactor float64) models.MasteryLevel {
	switch {
	case repetitions >= 5 && easeFactor >= 2.0:
		return models.MasteryMastered
	case repetitions >= 2:
		return models.MasteryPracticing
	default:
		return models.MasteryLearning
	}
}

// IsPassing reports whether the quality counts as successful recall.
func IsPassing(quality int) bool {
	return quality >= failThreshold
}

// nextEase applies the SM-2 ease update:
// EF' = EF + (0.1 - (5-q) * (0.08 + (5-q)*0.02))
func nextEase(ease float64, quality int) float64 {
	q := float64(quality)
	return ease + (0.1 - (5-q)*(0.08+(5-q)*0.02))
}

func clampEase(p Policy, ease float64) float64 {
	if ease < MinEaseFactor {
		ease = MinEaseFactor
	}
	if p.MaxEaseFactor > 0 && ease > p.MaxEaseFactor {
		ease = p.MaxEaseFactor
	}
	return round2(ease)
}

// Stored ease factors are kept at two decimal places so repeated reviews
// stay reproducible across load/store cycles.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

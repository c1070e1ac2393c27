package services

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/studyforge/srs-service/internal/models"
	"github.com/studyforge/srs-service/internal/repositories"
)

// cardSelector builds the fixed card set for a new session. Each study mode
// orders and filters the deck differently; the result is frozen into
// CardsScheduled when the session is created.
type cardSelector struct {
	repo repositories.Repository
}

func newCardSelector(repo repositories.Repository) *cardSelector {
	return &cardSelector{repo: repo}
}

// Select returns the scheduled card IDs for the given mode, capped at
// targetCards when set. It returns ErrNoCardsAvailable when the mode yields
// an empty set.
func (cs *cardSelector) Select(ctx context.Context, userID, deckID string, mode models.StudyMode, targetCards *int, now time.Time) ([]string, error) {
	deckCards, err := cs.repo.Flashcard().GetIDsByDeck(ctx, deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to load deck cards: %w", err)
	}
	if len(deckCards) == 0 {
		return nil, ErrNoCardsAvailable
	}

	var selected []string
	switch mode {
	case models.ModeReview:
		selected, err = cs.selectReview(ctx, userID, deckCards, now)
	case models.ModeLearn:
		selected, err = cs.selectLearn(ctx, userID, deckCards)
	case models.ModePractice, models.ModeTest:
		selected = shuffled(deckCards, now)
	case models.ModeCram:
		selected = deckCards
	default:
		return nil, fmt.Errorf("%w: unknown study mode %q", ErrValidationFailed, mode)
	}
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, ErrNoCardsAvailable
	}

	if targetCards != nil && *targetCards > 0 && len(selected) > *targetCards {
		selected = selected[:*targetCards]
	}
	return selected, nil
}

// selectReview orders due cards first (earliest next_review, then lowest
// ease), followed by never-studied cards in deck order. Cards not yet due
// are excluded.
func (cs *cardSelector) selectReview(ctx context.Context, userID string, deckCards []string, now time.Time) ([]string, error) {
	records, err := cs.repo.Progress().GetByUserAndCards(ctx, userID, deckCards)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress records: %w", err)
	}

	byCard := make(map[string]*models.ProgressRecord, len(records))
	for _, r := range records {
		byCard[r.FlashcardID] = r
	}

	var due []*models.ProgressRecord
	var fresh []string
	for _, cardID := range deckCards {
		record, studied := byCard[cardID]
		if !studied {
			fresh = append(fresh, cardID)
			continue
		}
		if record.IsDue(now) {
			due = append(due, record)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		ni, nj := due[i].NextReview, due[j].NextReview
		if ni != nil && nj != nil && !ni.Equal(*nj) {
			return ni.Before(*nj)
		}
		return due[i].EaseFactor < due[j].EaseFactor
	})

	selected := make([]string, 0, len(due)+len(fresh))
	for _, r := range due {
		selected = append(selected, r.FlashcardID)
	}
	return append(selected, fresh...), nil
}

// selectLearn keeps only cards the user has never studied, in deck order.
func (cs *cardSelector) selectLearn(ctx context.Context, userID string, deckCards []string) ([]string, error) {
	records, err := cs.repo.Progress().GetByUserAndCards(ctx, userID, deckCards)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress records: %w", err)
	}

	studied := make(map[string]struct{}, len(records))
	for _, r := range records {
		studied[r.FlashcardID] = struct{}{}
	}

	var fresh []string
	for _, cardID := range deckCards {
		if _, ok := studied[cardID]; !ok {
			fresh = append(fresh, cardID)
		}
	}
	return fresh, nil
}

func shuffled(cards []string, now time.Time) []string {
	out := make([]string, len(cards))
	copy(out, cards)
	rng := rand.New(rand.NewSource(now.UnixNano()))
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

package game

import (
	"math/rand"

	"github.com/google/uuid"

	"chaarchitti/internal/models"
)

// BuildDeck produces a shuffled deck for the given player count: the first
// playerCount entries of the canonical category list, four cards of each,
// so exactly 4*playerCount cards total. The shuffle is an unbiased
// Fisher-Yates over the whole sequence.
//
// Callers must enforce 4 <= playerCount <= len(models.Categories) before
// invoking; the deck shape is undefined outside those bounds.
func BuildDeck(playerCount int, newID func() uuid.UUID, rng *rand.Rand) []*models.Card {
	deck := make([]*models.Card, 0, 4*playerCount)
	for _, category := range models.Categories[:playerCount] {
		for i := 0; i < 4; i++ {
			deck = append(deck, &models.Card{ID: newID(), Category: category})
		}
	}
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}

package game

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaarchitti/internal/models"
)

func TestBuildDeckComposition(t *testing.T) {
	for _, playerCount := range []int{4, 6, 10} {
		rng := rand.New(rand.NewSource(1))
		deck := BuildDeck(playerCount, uuid.New, rng)
		require.Len(t, deck, 4*playerCount)

		perCategory := map[models.Category]int{}
		ids := map[uuid.UUID]bool{}
		for _, c := range deck {
			perCategory[c.Category]++
			assert.False(t, ids[c.ID], "duplicate card id")
			ids[c.ID] = true
		}

		require.Len(t, perCategory, playerCount)
		for _, cat := range models.Categories[:playerCount] {
			assert.Equal(t, 4, perCategory[cat], "category %s", cat)
		}
	}
}

func TestBuildDeckShuffleIsSeeded(t *testing.T) {
	a := BuildDeck(4, uuid.New, rand.New(rand.NewSource(42)))
	b := BuildDeck(4, uuid.New, rand.New(rand.NewSource(42)))
	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].Category, b[i].Category, "position %d", i)
	}
}

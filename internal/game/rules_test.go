package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"chaarchitti/internal/models"
)

func cards(categories ...models.Category) []*models.Card {
	out := make([]*models.Card, len(categories))
	for i, cat := range categories {
		out[i] = &models.Card{ID: uuid.New(), Category: cat}
	}
	return out
}

func TestIsSet(t *testing.T) {
	m := models.CategoryMango
	p := models.CategoryPotato

	assert.True(t, IsSet(cards(m, m, m, m)))
	// Order does not matter.
	assert.True(t, IsSet(cards(p, p, p, p)))

	assert.False(t, IsSet(cards(m, m, m, p)))
	assert.False(t, IsSet(cards(m, m, m)), "three cards")
	assert.False(t, IsSet(cards(m, m, m, m, m)), "five cards")
	assert.False(t, IsSet(nil))
}

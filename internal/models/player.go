// internal/models/player.go
package models

import (
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Player is one seat in a room. The entity persists across disconnects; only
// Connected flips. Hand order matters: index 0 is the top card, which is the
// one auto-passed on timeout.
type Player struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Hand      []*Card         `json:"-"`
	Connected bool            `json:"connected"`
	Conn      *websocket.Conn `json:"-"`

	HasPassed      bool `json:"hasPassed"`
	HasDeclaredSet bool `json:"hasDeclaredSet"`
	Score          int  `json:"score"`

	// Rank and RankClickedAt are unset until the player finishes the round.
	// Pointers, not sentinels: an unset rank must never participate in a sort.
	Rank          *int       `json:"rank,omitempty"`
	RankClickedAt *time.Time `json:"-"`
}

// HandCard returns the card with the given id and its index, or (nil, -1).
func (p *Player) HandCard(cardID uuid.UUID) (*Card, int) {
	for i, c := range p.Hand {
		if c.ID == cardID {
			return c, i
		}
	}
	return nil, -1
}

// ResetForRound clears per-round state. Called on every transition into
// DISTRIBUTION.
func (p *Player) ResetForRound() {
	p.Hand = nil
	p.HasPassed = false
	p.HasDeclaredSet = false
	p.Rank = nil
	p.RankClickedAt = nil
}

package game

import (
	"github.com/google/uuid"

	"chaarchitti/internal/models"
)

// Eligibility predicates shared by the action validators and the state
// projector. Both sides consume the same functions, so what a player is told
// they may do and what the room will actually accept can never diverge.
// All assume the room lock is held.

// passEligibility reports whether p may pass a card right now. Returns nil
// when eligible, otherwise the rejection the validator will surface.
func (r *Room) passEligibility(p *models.Player) *Rejection {
	if r.phase != PhasePassPhase {
		return reject(CodeWrongPhase, "not in pass phase")
	}
	holder := CurrentTurnHolder(r.players, r.turnIndex)
	if holder == nil || holder.ID != p.ID {
		return reject(CodeNotYourTurn, "not your turn to pass")
	}
	if p.HasPassed {
		return reject(CodeAlreadyPassed, "you have already passed")
	}
	if len(p.Hand) == 0 {
		return reject(CodeCardNotFound, "no cards to pass")
	}
	return nil
}

// declareEligibility reports whether p may declare a SET right now.
func (r *Room) declareEligibility(p *models.Player) *Rejection {
	if r.phase != PhasePassPhase {
		return reject(CodeWrongPhase, "not in pass phase")
	}
	if r.setWinnerID != uuid.Nil {
		return reject(CodeSetAlreadyDeclared, "a SET has already been declared")
	}
	if !IsSet(p.Hand) {
		return reject(CodeNotASet, "your hand is not a SET")
	}
	return nil
}

// clickEligibility reports whether p may join the hand-stack race right now.
func (r *Room) clickEligibility(p *models.Player) *Rejection {
	if r.phase != PhaseHandStack {
		return reject(CodeWrongPhase, "not in hand stack phase")
	}
	if p.ID == r.setWinnerID {
		return reject(CodeDeclarerCannotRace, "the SET declarer already holds first place")
	}
	if p.Rank != nil {
		return reject(CodeAlreadyRanked, "you already clicked hand")
	}
	return nil
}

// IsSet reports whether a hand is exactly four cards of one category. Hand
// order is irrelevant.
func IsSet(hand []*models.Card) bool {
	if len(hand) != 4 {
		return false
	}
	for _, c := range hand[1:] {
		if c.Category != hand[0].Category {
			return false
		}
	}
	return true
}

// internal/game/view.go
package game

import (
	"github.com/google/uuid"

	"chaarchitti/internal/models"
)

// PlayerSummary is the public projection of one seat: everything except the
// hand contents. Other players only ever learn how many cards a seat holds.
type PlayerSummary struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	CardCount      int       `json:"cardCount"`
	HasPassed      bool      `json:"hasPassed"`
	HasDeclaredSet bool      `json:"hasDeclaredSet"`
	Score          int       `json:"score"`
	Rank           *int      `json:"rank,omitempty"`
	Connected      bool      `json:"connected"`
}

// View is the personalized snapshot delivered to one player after every
// mutating action and on each countdown tick.
type View struct {
	RoomCode       string          `json:"roomCode"`
	Phase          Phase           `json:"phase"`
	RoundNumber    int             `json:"roundNumber"`
	TimerRemaining int             `json:"timer"`
	Players        []PlayerSummary `json:"players"`
	YourID         uuid.UUID       `json:"yourPlayerId"`
	YourHand       []models.Card   `json:"yourCards"`
	SetWinnerID    *uuid.UUID      `json:"setWinner,omitempty"`
	CurrentTurnID  *uuid.UUID      `json:"currentPassingPlayerId,omitempty"`
	CanPass        bool            `json:"canPass"`
	CanDeclareSet  bool            `json:"canSet"`
	CanClickHand   bool            `json:"canHand"`
}

// ViewFor derives the target player's view of the room. The permitted-action
// booleans come from the same eligibility predicates the validators enforce.
func (r *Room) ViewFor(playerID uuid.UUID) (*View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	target := r.findPlayer(playerID)
	if target == nil {
		return nil, reject(CodePlayerNotFound, "player not found")
	}

	v := &View{
		RoomCode:       r.Code,
		Phase:          r.phase,
		RoundNumber:    r.roundNumber,
		TimerRemaining: r.timerLeft,
		YourID:         target.ID,
		CanPass:        r.passEligibility(target) == nil,
		CanDeclareSet:  r.declareEligibility(target) == nil,
		CanClickHand:   r.clickEligibility(target) == nil,
	}

	v.YourHand = make([]models.Card, len(target.Hand))
	for i, c := range target.Hand {
		v.YourHand[i] = *c
	}

	v.Players = make([]PlayerSummary, len(r.players))
	for i, p := range r.players {
		v.Players[i] = PlayerSummary{
			ID:             p.ID,
			Name:           p.Name,
			CardCount:      len(p.Hand),
			HasPassed:      p.HasPassed,
			HasDeclaredSet: p.HasDeclaredSet,
			Score:          p.Score,
			Rank:           p.Rank,
			Connected:      p.Connected,
		}
	}

	if r.setWinnerID != uuid.Nil {
		winner := r.setWinnerID
		v.SetWinnerID = &winner
	}
	if r.phase == PhasePassPhase {
		if holder := CurrentTurnHolder(r.players, r.turnIndex); holder != nil {
			id := holder.ID
			v.CurrentTurnID = &id
		}
	}
	return v, nil
}

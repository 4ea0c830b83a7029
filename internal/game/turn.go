package game

import "chaarchitti/internal/models"

// ConnectedPlayers returns the players currently connected, preserving
// seating order.
func ConnectedPlayers(players []*models.Player) []*models.Player {
	connected := make([]*models.Player, 0, len(players))
	for _, p := range players {
		if p.Connected {
			connected = append(connected, p)
		}
	}
	return connected
}

// CurrentTurnHolder returns the player whose turn it is to pass: the player
// at turnIndex among the connected members of the seating order, with
// wraparound. Returns nil if nobody is connected.
//
// A disconnect is never acted on directly; the holder is simply recomputed
// from the connected seating order the next time it is needed.
func CurrentTurnHolder(players []*models.Player, turnIndex int) *models.Player {
	connected := ConnectedPlayers(players)
	if len(connected) == 0 {
		return nil
	}
	return connected[turnIndex%len(connected)]
}

// NextConnectedAfter returns the next connected player in seating order after
// the given player, wrapping around. When the passer is the only connected
// seat it receives its own card back, so a passed card never leaves play.
func NextConnectedAfter(players []*models.Player, from *models.Player) *models.Player {
	start := -1
	for i, p := range players {
		if p == from {
			start = i
			break
		}
	}
	if start == -1 {
		return nil
	}
	for off := 1; off <= len(players); off++ {
		candidate := players[(start+off)%len(players)]
		if candidate.Connected {
			return candidate
		}
	}
	return nil
}

package models

// RoomConfig is fixed at room creation.
type RoomConfig struct {
	MinPlayers       int         `json:"minPlayers"`
	MaxPlayers       int         `json:"maxPlayers"`
	PassPhaseSeconds int         `json:"passPhaseSeconds"`
	HandStackSeconds int         `json:"handStackSeconds"`
	Scoring          map[int]int `json:"scoring"` // rank -> points
}

// DefaultRoomConfig mirrors the standard table: the SET declarer takes 1000
// and the hand-stack race pays out down to sixth place.
func DefaultRoomConfig() RoomConfig {
	return RoomConfig{
		MinPlayers:       4,
		MaxPlayers:       10,
		PassPhaseSeconds: 30,
		HandStackSeconds: 10,
		Scoring: map[int]int{
			1: 1000,
			2: 500,
			3: 400,
			4: 300,
			5: 200,
			6: 100,
		},
	}
}

// PointsForRank returns 0 for ranks beyond the table.
func (c RoomConfig) PointsForRank(rank int) int {
	return c.Scoring[rank]
}

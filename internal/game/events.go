package game

// Phase is the room's lifecycle position. DISTRIBUTION is transient: a room
// is never observed in it between actions.
type Phase string

const (
	PhaseLobby        Phase = "LOBBY"
	PhaseDistribution Phase = "DISTRIBUTION"
	PhasePassPhase    Phase = "PASS_PHASE"
	PhaseHandStack    Phase = "HAND_STACK"
	PhaseRoundEnd     Phase = "ROUND_END"
)

// EventType enumerates the discrete notifications broadcast to room members,
// alongside the per-player view sync.
type EventType string

const (
	EventPlayerJoined EventType = "player_joined"
	EventPlayerLeft   EventType = "player_left"
	EventPhaseChange  EventType = "phase_change"
	EventPlayerPassed EventType = "player_passed"
	EventAutoPass     EventType = "auto_pass"
	EventSetDeclared  EventType = "set_declared"
	EventHandClicked  EventType = "hand_clicked"
	EventRoundEnd     EventType = "round_end"
)

// Event is one broadcast notification. Payload keys are event-specific.
type Event struct {
	Type    EventType              `json:"type"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// RoundScore is one row of the round-end scoreboard.
type RoundScore struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Rank       int    `json:"rank"`
	Points     int    `json:"points"`
	TotalScore int    `json:"totalScore"`
}

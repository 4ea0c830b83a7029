package game

// Rejection reason codes. Every invalid action maps to exactly one code and
// leaves room state untouched.
const (
	CodeRoomNotFound       = "room_not_found"
	CodePlayerNotFound     = "player_not_found"
	CodeWrongPhase         = "wrong_phase"
	CodeNotHost            = "not_host"
	CodeNotEnoughPlayers   = "not_enough_players"
	CodeRoomFull           = "room_full"
	CodeNotYourTurn        = "not_your_turn"
	CodeAlreadyPassed      = "already_passed"
	CodeCardNotFound       = "card_not_found"
	CodeSetAlreadyDeclared = "set_already_declared"
	CodeNotASet            = "not_a_set"
	CodeAlreadyRanked      = "already_ranked"
	CodeDeclarerCannotRace = "declarer_cannot_race"
	CodeNotInLobby         = "not_in_lobby"
)

// Rejection is the non-fatal result of an invalid action. It carries a stable
// reason code for the client and a human-readable message.
type Rejection struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (r *Rejection) Error() string { return r.Message }

func reject(code, message string) *Rejection {
	return &Rejection{Code: code, Message: message}
}

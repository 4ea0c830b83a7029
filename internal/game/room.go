// internal/game/room.go
package game

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"chaarchitti/internal/cache"
	"chaarchitti/internal/database"
	"chaarchitti/internal/models"
)

// Room holds the entire state for one game session in memory. All mutation
// goes through the room mutex: inbound player actions and countdown ticks are
// serialized events, so two of them can never interleave on the same room.
// Rooms are fully independent of each other.
type Room struct {
	Code   string
	Config models.RoomConfig

	mu          sync.Mutex
	phase       Phase
	players     []*models.Player // seating order; index 0 is the host
	deck        []*models.Card   // draw pile; dealt from the end
	timerLeft   int              // remaining seconds in the current countdown
	setWinnerID uuid.UUID        // uuid.Nil until a SET is declared this round
	roundNumber int
	turnIndex   int // index into the connected seating order

	// rankOrder is the arrival order of rank stamps (declarer first, then
	// clicks). Ties on timestamp resolve by this order: first writer wins.
	rankOrder []*models.Player

	// timerGen invalidates countdowns: arming bumps the generation and any
	// already-fired tick for an older generation is discarded. This is the
	// cancellation mechanism; no timer handle is ever cleared.
	timerGen  int
	tickEvery time.Duration

	now   func() time.Time
	newID func() uuid.UUID
	rng   *rand.Rand

	actionIndex int
	log         logrus.FieldLogger

	// BroadcastFn delivers an event to every room member. Invoked with the
	// room lock held; implementations must not call back into the room.
	BroadcastFn func(ev Event)

	// OnSync is invoked outside the lock after every timer-driven mutation
	// so the transport can fan out fresh per-player views.
	OnSync func()

	// OnEmpty is invoked when the last player leaves a lobby-phase room,
	// typically wired to registry eviction.
	OnEmpty func(code string)
}

func newRoom(code string, cfg models.RoomConfig, logger logrus.FieldLogger) *Room {
	return &Room{
		Code:      code,
		Config:    cfg,
		phase:     PhaseLobby,
		tickEvery: time.Second,
		now:       time.Now,
		newID:     uuid.New,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		log:       logger.WithField("room", code),
	}
}

// Phase returns the room's current phase.
func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// RoundNumber returns the number of rounds started so far.
func (r *Room) RoundNumber() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roundNumber
}

// PlayerCount returns the number of seats, connected or not.
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Join adds a new player in LOBBY phase, or resumes an existing seat when the
// display name matches (any phase). On resume the previous connection, if
// different, is closed.
func (r *Room) Join(name string, conn *websocket.Conn) (*models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.players {
		if p.Name == name {
			if p.Conn != nil && p.Conn != conn {
				p.Conn.Close(websocket.StatusPolicyViolation, "seat resumed from another connection")
			}
			p.Conn = conn
			p.Connected = true
			r.log.WithField("player", p.ID).Info("player rejoined")
			r.logAction(p.ID, "player_rejoin", nil)
			return p, nil
		}
	}

	if r.phase != PhaseLobby {
		return nil, reject(CodeWrongPhase, "game already in progress")
	}
	if len(r.players) >= r.Config.MaxPlayers {
		return nil, reject(CodeRoomFull, "room is full")
	}

	p := &models.Player{
		ID:        r.newID(),
		Name:      name,
		Connected: true,
		Conn:      conn,
	}
	r.players = append(r.players, p)
	r.log.WithFields(logrus.Fields{"player": p.ID, "name": name}).Info("player joined")
	r.logAction(p.ID, "player_join", map[string]interface{}{"name": name})
	r.fireEvent(Event{Type: EventPlayerJoined, Payload: map[string]interface{}{
		"playerId":    p.ID.String(),
		"playerName":  p.Name,
		"playerCount": len(r.players),
	}})
	return p, nil
}

// Leave removes a player outright. Only permitted in LOBBY; once a round has
// started, leaving is modeled as a disconnect so the seat and its cards stay
// part of the round.
func (r *Room) Leave(playerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseLobby {
		return reject(CodeNotInLobby, "cannot leave a game in progress")
	}
	p := r.findPlayer(playerID)
	if p == nil {
		return reject(CodePlayerNotFound, "player not found")
	}
	r.removePlayer(p)
	r.logAction(playerID, "player_leave", nil)
	return nil
}

// Start begins the first round. Host only, LOBBY only, and the room must have
// reached the configured minimum player count.
func (r *Room) Start(playerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseLobby {
		return reject(CodeWrongPhase, "game already started")
	}
	if p := r.findPlayer(playerID); p == nil {
		return reject(CodePlayerNotFound, "player not found")
	}
	if r.players[0].ID != playerID {
		return reject(CodeNotHost, "only the host can start the game")
	}
	if len(r.players) < r.Config.MinPlayers {
		return reject(CodeNotEnoughPlayers, "not enough players to start")
	}
	r.beginRound()
	return nil
}

// Continue starts the next round from ROUND_END. Host only; the minimum
// player gate does not apply to continuation.
func (r *Room) Continue(playerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseRoundEnd {
		return reject(CodeWrongPhase, "round is not over")
	}
	if p := r.findPlayer(playerID); p == nil {
		return reject(CodePlayerNotFound, "player not found")
	}
	if r.players[0].ID != playerID {
		return reject(CodeNotHost, "only the host can continue the game")
	}
	r.beginRound()
	return nil
}

// Pass moves one card from the current turn-holder to the next connected
// player in seating order. Strictly sequential: only the turn-holder's pass
// is accepted.
func (r *Room) Pass(playerID, cardID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findPlayer(playerID)
	if p == nil {
		return reject(CodePlayerNotFound, "player not found")
	}
	if rej := r.passEligibility(p); rej != nil {
		return rej
	}
	card, idx := p.HandCard(cardID)
	if card == nil {
		return reject(CodeCardNotFound, "card not in your hand")
	}

	r.moveCard(p, idx, card)
	p.HasPassed = true
	r.logAction(playerID, "pass", map[string]interface{}{"cardId": cardID.String()})
	r.fireEvent(Event{Type: EventPlayerPassed, Payload: map[string]interface{}{
		"playerId":   p.ID.String(),
		"playerName": p.Name,
	}})
	r.advanceTurn()
	return nil
}

// DeclareSet records the round winner. Valid whenever the acting player holds
// exactly four cards of one category during PASS_PHASE and nobody has won yet.
func (r *Room) DeclareSet(playerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findPlayer(playerID)
	if p == nil {
		return reject(CodePlayerNotFound, "player not found")
	}
	if rej := r.declareEligibility(p); rej != nil {
		return rej
	}

	r.setWinnerID = p.ID
	p.HasDeclaredSet = true
	r.stampRank(p)
	r.logAction(playerID, "declare_set", nil)
	r.fireEvent(Event{Type: EventSetDeclared, Payload: map[string]interface{}{
		"playerId":   p.ID.String(),
		"playerName": p.Name,
	}})
	r.enterHandStack()
	return nil
}

// ClickHand stamps the caller into the hand-stack race and returns the rank
// assigned by the recompute. The recompute-and-assign step runs under the
// room lock, so concurrent clicks cannot produce duplicate ranks.
func (r *Room) ClickHand(playerID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findPlayer(playerID)
	if p == nil {
		return 0, reject(CodePlayerNotFound, "player not found")
	}
	if rej := r.clickEligibility(p); rej != nil {
		return 0, rej
	}

	r.stampRank(p)
	r.logAction(playerID, "click_hand", map[string]interface{}{"rank": *p.Rank})
	r.fireEvent(Event{Type: EventHandClicked, Payload: map[string]interface{}{
		"playerId":   p.ID.String(),
		"playerName": p.Name,
		"position":   *p.Rank,
	}})
	return *p.Rank, nil
}

// Disconnect marks a player as gone. Idempotent and non-destructive: outside
// LOBBY the seat and its hand remain part of the round. In LOBBY the player
// is removed outright and an emptied room is evicted.
func (r *Room) Disconnect(playerID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findPlayer(playerID)
	if p == nil {
		return
	}
	if r.phase == PhaseLobby {
		r.removePlayer(p)
		r.logAction(playerID, "player_disconnect", nil)
		return
	}
	if !p.Connected {
		return
	}
	p.Connected = false
	p.Conn = nil
	r.log.WithField("player", playerID).Info("player disconnected")
	r.logAction(playerID, "player_disconnect", nil)
}

// Reconnect rebinds a transport connection to an existing seat.
func (r *Room) Reconnect(playerID uuid.UUID, conn *websocket.Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findPlayer(playerID)
	if p == nil {
		return reject(CodePlayerNotFound, "player not found")
	}
	if p.Conn != nil && p.Conn != conn {
		p.Conn.Close(websocket.StatusPolicyViolation, "seat resumed from another connection")
	}
	p.Conn = conn
	p.Connected = true
	r.log.WithField("player", playerID).Info("player reconnected")
	r.logAction(playerID, "player_reconnect", nil)
	return nil
}

// --- internal transitions; all assume the lock is held ---

// beginRound resets every seat, builds and deals a fresh deck, and drops
// straight through DISTRIBUTION into PASS_PHASE.
func (r *Room) beginRound() {
	r.phase = PhaseDistribution
	r.roundNumber++
	r.rankOrder = nil
	r.setWinnerID = uuid.Nil
	for _, p := range r.players {
		p.ResetForRound()
	}

	r.deck = BuildDeck(len(r.players), r.newID, r.rng)

	// One card per player per pass, four passes, consuming from the end.
	for i := 0; i < 4; i++ {
		for _, p := range r.players {
			card := r.deck[len(r.deck)-1]
			r.deck = r.deck[:len(r.deck)-1]
			p.Hand = append(p.Hand, card)
		}
	}

	r.turnIndex = 0
	r.logAction(uuid.Nil, "round_start", map[string]interface{}{"round": r.roundNumber})
	r.enterPassPhase()
}

func (r *Room) enterPassPhase() {
	r.phase = PhasePassPhase
	for _, p := range r.players {
		p.HasPassed = false
	}
	r.setWinnerID = uuid.Nil
	r.armCountdown(r.Config.PassPhaseSeconds)
	r.fireEvent(Event{Type: EventPhaseChange, Payload: map[string]interface{}{
		"phase": string(r.phase),
		"timer": r.timerLeft,
	}})
}

func (r *Room) enterHandStack() {
	r.phase = PhaseHandStack
	r.armCountdown(r.Config.HandStackSeconds)
	r.fireEvent(Event{Type: EventPhaseChange, Payload: map[string]interface{}{
		"phase": string(r.phase),
		"timer": r.timerLeft,
	}})
}

// moveCard removes the card at idx from p and appends it to the hand of the
// next connected player in seating order.
func (r *Room) moveCard(p *models.Player, idx int, card *models.Card) {
	p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)
	if next := NextConnectedAfter(r.players, p); next != nil {
		next.Hand = append(next.Hand, card)
	}
}

// advanceTurn moves the turn to the next connected seat and arms a fresh
// countdown for the new holder. Reaching the end of the connected seating
// order starts a new passing sub-round: every hasPassed flag resets and the
// index wraps to the first seat.
//
// Arming on every advance, not only at the sub-round boundary, keeps two
// invariants: each holder gets a full window even after an earlier timeout
// in the sub-round, and the generation bump discards the previous holder's
// pending timeout so a manual pass and a timeout can never both apply.
func (r *Room) advanceTurn() {
	r.turnIndex++
	if r.turnIndex >= len(ConnectedPlayers(r.players)) {
		for _, p := range r.players {
			p.HasPassed = false
		}
		r.turnIndex = 0
	}
	r.armCountdown(r.Config.PassPhaseSeconds)
}

// handlePassTimeout auto-passes the current turn-holder's top card exactly as
// a manual pass would. A holder who no longer holds cards is skipped
// silently; either way the turn advances.
func (r *Room) handlePassTimeout() {
	holder := CurrentTurnHolder(r.players, r.turnIndex)
	if holder != nil && !holder.HasPassed && len(holder.Hand) > 0 {
		card := holder.Hand[0]
		r.moveCard(holder, 0, card)
		holder.HasPassed = true
		r.logAction(holder.ID, "auto_pass", map[string]interface{}{"cardId": card.ID.String()})
		r.fireEvent(Event{Type: EventAutoPass, Payload: map[string]interface{}{
			"playerId":   holder.ID.String(),
			"playerName": holder.Name,
		}})
	}
	r.advanceTurn()
}

// stampRank timestamps the player and recomputes every assigned rank from
// scratch. Recomputing on each stamp is O(N log N) with N <= 10 players;
// the from-scratch form keeps the no-duplicate guarantee easy to see.
func (r *Room) stampRank(p *models.Player) {
	ts := r.now()
	p.RankClickedAt = &ts
	r.rankOrder = append(r.rankOrder, p)

	sort.SliceStable(r.rankOrder, func(i, j int) bool {
		return r.rankOrder[i].RankClickedAt.Before(*r.rankOrder[j].RankClickedAt)
	})
	for i, ranked := range r.rankOrder {
		rank := i + 1
		ranked.Rank = &rank
	}
}

// endRound assigns trailing ranks to connected players who never clicked,
// applies the scoring table, and parks the room in ROUND_END until the host
// continues.
func (r *Room) endRound() {
	r.phase = PhaseRoundEnd

	next := len(r.rankOrder) + 1
	for _, p := range r.players {
		if p.Rank == nil && p.Connected {
			rank := next
			next++
			p.Rank = &rank
			r.rankOrder = append(r.rankOrder, p)
		}
	}

	scores := make([]RoundScore, 0, len(r.players))
	for _, p := range r.players {
		if p.Rank == nil {
			continue
		}
		points := r.Config.PointsForRank(*p.Rank)
		p.Score += points
		scores = append(scores, RoundScore{
			PlayerID:   p.ID.String(),
			PlayerName: p.Name,
			Rank:       *p.Rank,
			Points:     points,
			TotalScore: p.Score,
		})
	}

	r.logAction(uuid.Nil, "round_end", map[string]interface{}{"round": r.roundNumber})
	r.fireEvent(Event{Type: EventRoundEnd, Payload: map[string]interface{}{
		"scores": scores,
	}})

	if database.Enabled() {
		results := make([]database.RoundResult, len(scores))
		for i, s := range scores {
			results[i] = database.RoundResult{
				PlayerID:   s.PlayerID,
				PlayerName: s.PlayerName,
				Rank:       s.Rank,
				Points:     s.Points,
				TotalScore: s.TotalScore,
			}
		}
		code, round := r.Code, r.roundNumber
		go func() {
			if err := database.RecordRoundResults(context.Background(), code, round, results); err != nil {
				r.log.WithError(err).Warn("failed to record round results")
			}
		}()
	}
}

// --- countdown machinery ---

// armCountdown starts a fresh countdown at the given duration. Bumping the
// generation implicitly cancels any countdown still in flight: its next tick
// observes a stale generation and stops.
func (r *Room) armCountdown(seconds int) {
	r.timerGen++
	r.timerLeft = seconds
	go r.runCountdown(r.timerGen)
}

func (r *Room) runCountdown(gen int) {
	ticker := time.NewTicker(r.tickEvery)
	defer ticker.Stop()
	for range ticker.C {
		cont, stale := r.applyTick(gen)
		if stale {
			return
		}
		if r.OnSync != nil {
			r.OnSync()
		}
		if !cont {
			return
		}
	}
}

// applyTick is the serialized timer event. The generation check makes
// cancellation race-free: a tick that fired before a phase transition but is
// applied after it sees the bumped generation and is discarded.
func (r *Room) applyTick(gen int) (cont, stale bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.timerGen {
		return false, true
	}
	r.timerLeft--
	if r.timerLeft > 0 {
		return true, false
	}
	switch r.phase {
	case PhasePassPhase:
		r.handlePassTimeout()
	case PhaseHandStack:
		r.endRound()
	}
	return false, false
}

// --- helpers ---

func (r *Room) findPlayer(id uuid.UUID) *models.Player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// removePlayer deletes a seat from the seating order. LOBBY only; fires the
// leave event and triggers eviction when the room empties.
func (r *Room) removePlayer(p *models.Player) {
	for i, q := range r.players {
		if q == p {
			r.players = append(r.players[:i], r.players[i+1:]...)
			break
		}
	}
	r.fireEvent(Event{Type: EventPlayerLeft, Payload: map[string]interface{}{
		"playerId":    p.ID.String(),
		"playerName":  p.Name,
		"playerCount": len(r.players),
	}})
	if len(r.players) == 0 && r.OnEmpty != nil {
		r.OnEmpty(r.Code)
	}
}

func (r *Room) fireEvent(ev Event) {
	if r.BroadcastFn != nil {
		r.BroadcastFn(ev)
	}
}

// logAction pushes an action record onto the journal queue, if configured.
// Fire-and-forget; journaling never blocks or fails an action.
func (r *Room) logAction(actorID uuid.UUID, action string, payload map[string]interface{}) {
	r.actionIndex++
	if !cache.Enabled() {
		return
	}
	rec := cache.RoomActionRecord{
		RoomCode:    r.Code,
		ActionIndex: r.actionIndex,
		ActorID:     actorID,
		Action:      action,
		Payload:     payload,
		Timestamp:   r.now().UnixMilli(),
	}
	go func() {
		if err := cache.PublishRoomAction(context.Background(), rec); err != nil {
			r.log.WithError(err).Warn("failed to publish action record")
		}
	}()
}

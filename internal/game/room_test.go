// internal/game/room_test.go
package game

import (
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaarchitti/internal/models"
)

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu     sync.Mutex
	events []Event
}

func (mb *mockBroadcaster) record(ev Event) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.events = append(mb.events, ev)
}

func (mb *mockBroadcaster) byType(t EventType) []Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	var out []Event
	for _, ev := range mb.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (mb *mockBroadcaster) last() *Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if len(mb.events) == 0 {
		return nil
	}
	return &mb.events[len(mb.events)-1]
}

// fakeClock lets tests control the timestamps behind rank assignment.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// setupRoom builds a room with n seated players named p1..pN. The tick
// interval is stretched so background countdown goroutines never fire; tests
// drive the timer through applyTick instead.
func setupRoom(t *testing.T, n int) (*Room, *mockBroadcaster, *fakeClock) {
	t.Helper()
	r := newRoom("TESTRM", models.DefaultRoomConfig(), testLogger())
	r.tickEvery = time.Hour
	r.rng = rand.New(rand.NewSource(7))
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	r.now = clock.Now

	mb := &mockBroadcaster{}
	r.BroadcastFn = mb.record

	names := []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8", "p9", "p10"}
	for i := 0; i < n; i++ {
		_, err := r.Join(names[i], nil)
		require.NoError(t, err)
	}
	return r, mb, clock
}

func seat(r *Room, i int) *models.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.players[i]
}

func handSize(r *Room, p *models.Player) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(p.Hand)
}

func topCard(r *Room, p *models.Player) *models.Card {
	r.mu.Lock()
	defer r.mu.Unlock()
	return p.Hand[0]
}

func totalCards(r *Room) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := len(r.deck)
	for _, p := range r.players {
		total += len(p.Hand)
	}
	return total
}

func holder(r *Room) *models.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return CurrentTurnHolder(r.players, r.turnIndex)
}

// giveSet overwrites a player's hand with four cards of one category.
func giveSet(r *Room, p *models.Player, cat models.Category) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.Hand = nil
	for i := 0; i < 4; i++ {
		p.Hand = append(p.Hand, &models.Card{ID: uuid.New(), Category: cat})
	}
}

// drainCountdown applies ticks of the current generation until the countdown
// expires or is superseded.
func drainCountdown(r *Room) {
	r.mu.Lock()
	gen := r.timerGen
	r.mu.Unlock()
	for {
		cont, stale := r.applyTick(gen)
		if stale || !cont {
			return
		}
	}
}

func rejectionCode(t *testing.T, err error) string {
	t.Helper()
	rej, ok := err.(*Rejection)
	require.True(t, ok, "expected a Rejection, got %v", err)
	return rej.Code
}

func TestLobbyJoinAndStart(t *testing.T) {
	r, mb, _ := setupRoom(t, 3)

	assert.Equal(t, PhaseLobby, r.Phase())
	assert.Len(t, mb.byType(EventPlayerJoined), 3)

	host := seat(r, 0)
	other := seat(r, 1)

	err := r.Start(host.ID)
	assert.Equal(t, CodeNotEnoughPlayers, rejectionCode(t, err))

	_, err = r.Join("p4", nil)
	require.NoError(t, err)

	err = r.Start(other.ID)
	assert.Equal(t, CodeNotHost, rejectionCode(t, err))

	require.NoError(t, r.Start(host.ID))
	assert.Equal(t, PhasePassPhase, r.Phase())
	assert.Equal(t, 1, r.RoundNumber())

	err = r.Start(host.ID)
	assert.Equal(t, CodeWrongPhase, rejectionCode(t, err))
}

func TestDealFourCardsEach(t *testing.T) {
	r, _, _ := setupRoom(t, 5)
	require.NoError(t, r.Start(seat(r, 0).ID))

	r.mu.Lock()
	assert.Empty(t, r.deck, "deck fully dealt")
	for _, p := range r.players {
		assert.Len(t, p.Hand, 4)
	}
	r.mu.Unlock()
	assert.Equal(t, 20, totalCards(r))
}

func TestJoinGates(t *testing.T) {
	cfg := models.DefaultRoomConfig()
	cfg.MaxPlayers = 4
	r := newRoom("FULLRM", cfg, testLogger())
	r.tickEvery = time.Hour
	for _, name := range []string{"a", "b", "c", "d"} {
		_, err := r.Join(name, nil)
		require.NoError(t, err)
	}

	_, err := r.Join("e", nil)
	assert.Equal(t, CodeRoomFull, rejectionCode(t, err))

	require.NoError(t, r.Start(seat(r, 0).ID))

	_, err = r.Join("latecomer", nil)
	assert.Equal(t, CodeWrongPhase, rejectionCode(t, err))

	// A matching display name resumes the existing seat in any phase.
	p, err := r.Join("b", nil)
	require.NoError(t, err)
	assert.Equal(t, seat(r, 1).ID, p.ID)
	assert.Equal(t, 4, r.PlayerCount())
}

func TestPassIsSequential(t *testing.T) {
	r, mb, _ := setupRoom(t, 4)
	require.NoError(t, r.Start(seat(r, 0).ID))

	first := holder(r)
	assert.Equal(t, seat(r, 0).ID, first.ID)

	// Out-of-turn passes are rejected without touching state.
	second := seat(r, 1)
	err := r.Pass(second.ID, topCard(r, second).ID)
	assert.Equal(t, CodeNotYourTurn, rejectionCode(t, err))
	assert.Equal(t, 4, handSize(r, second))

	// Passing a card you do not hold is rejected.
	err = r.Pass(first.ID, uuid.New())
	assert.Equal(t, CodeCardNotFound, rejectionCode(t, err))

	card := topCard(r, first)
	require.NoError(t, r.Pass(first.ID, card.ID))

	assert.Equal(t, 3, handSize(r, first))
	assert.Equal(t, 5, handSize(r, second))
	assert.Equal(t, 16, totalCards(r), "cards are conserved")
	assert.Equal(t, second.ID, holder(r).ID, "turn advanced")
	assert.Len(t, mb.byType(EventPlayerPassed), 1)

	// The passed card landed in the next seat's hand.
	r.mu.Lock()
	got, _ := second.HandCard(card.ID)
	r.mu.Unlock()
	assert.NotNil(t, got)
}

func TestPassSubRoundWrapsAndResets(t *testing.T) {
	r, _, _ := setupRoom(t, 4)
	require.NoError(t, r.Start(seat(r, 0).ID))

	for i := 0; i < 4; i++ {
		p := holder(r)
		require.NoError(t, r.Pass(p.ID, topCard(r, p).ID))
	}

	// All four passed, so the sub-round wrapped and everyone may pass again.
	first := holder(r)
	assert.Equal(t, seat(r, 0).ID, first.ID)
	r.mu.Lock()
	for _, p := range r.players {
		assert.False(t, p.HasPassed)
	}
	r.mu.Unlock()
	require.NoError(t, r.Pass(first.ID, topCard(r, first).ID))
}

func TestPassTimeoutAutoPassesTopCard(t *testing.T) {
	r, mb, _ := setupRoom(t, 4)
	require.NoError(t, r.Start(seat(r, 0).ID))

	first := holder(r)
	second := seat(r, 1)
	card := topCard(r, first)

	drainCountdown(r)

	assert.Equal(t, 3, handSize(r, first))
	r.mu.Lock()
	got, _ := second.HandCard(card.ID)
	r.mu.Unlock()
	assert.NotNil(t, got, "top card auto-passed to the next seat")
	assert.Equal(t, second.ID, holder(r).ID)
	assert.Len(t, mb.byType(EventAutoPass), 1)
	assert.Equal(t, 16, totalCards(r))
}

func TestManualPassSupersedesTimeout(t *testing.T) {
	r, mb, _ := setupRoom(t, 4)
	require.NoError(t, r.Start(seat(r, 0).ID))

	first := holder(r)
	r.mu.Lock()
	staleGen := r.timerGen
	r.mu.Unlock()

	require.NoError(t, r.Pass(first.ID, topCard(r, first).ID))

	// A timeout tick that was already in flight sees the bumped generation
	// and is discarded, so exactly one pass is applied.
	_, stale := r.applyTick(staleGen)
	assert.True(t, stale)
	assert.Equal(t, 3, handSize(r, first))
	assert.Len(t, mb.byType(EventAutoPass), 0)
}

func TestDeclareSet(t *testing.T) {
	r, mb, _ := setupRoom(t, 4)
	require.NoError(t, r.Start(seat(r, 0).ID))

	winner := seat(r, 2)
	err := r.DeclareSet(winner.ID)
	if err == nil {
		t.Skip("randomly dealt hand happened to be a SET")
	}
	assert.Equal(t, CodeNotASet, rejectionCode(t, err))

	giveSet(r, winner, models.CategoryMango)
	require.NoError(t, r.DeclareSet(winner.ID))

	assert.Equal(t, PhaseHandStack, r.Phase())
	require.NotNil(t, winner.Rank)
	assert.Equal(t, 1, *winner.Rank)
	assert.Len(t, mb.byType(EventSetDeclared), 1)

	// Only one SET per round.
	other := seat(r, 3)
	giveSet(r, other, models.CategoryPotato)
	err = r.DeclareSet(other.ID)
	assert.Equal(t, CodeWrongPhase, rejectionCode(t, err))

	// The declaration halts all further passing.
	h := seat(r, 0)
	err = r.Pass(h.ID, topCard(r, h).ID)
	assert.Equal(t, CodeWrongPhase, rejectionCode(t, err))
}

func TestHandStackRaceOrdering(t *testing.T) {
	r, _, clock := setupRoom(t, 4)
	require.NoError(t, r.Start(seat(r, 0).ID))

	p1, p2, p3, p4 := seat(r, 0), seat(r, 1), seat(r, 2), seat(r, 3)
	giveSet(r, p1, models.CategoryMango)
	require.NoError(t, r.DeclareSet(p1.ID))

	// The declarer already holds first place and may not race.
	_, err := r.ClickHand(p1.ID)
	assert.Equal(t, CodeDeclarerCannotRace, rejectionCode(t, err))

	// Clicks arrive p3, then p2, then p4; ranks follow the timestamps.
	clock.Advance(80 * time.Millisecond)
	rank, err := r.ClickHand(p3.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, rank)

	clock.Advance(20 * time.Millisecond)
	rank, err = r.ClickHand(p2.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, rank)

	clock.Advance(50 * time.Millisecond)
	rank, err = r.ClickHand(p4.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, rank)

	// Clicking twice is rejected and does not disturb the standings.
	_, err = r.ClickHand(p3.ID)
	assert.Equal(t, CodeAlreadyRanked, rejectionCode(t, err))

	// Ranks are a permutation of 1..4.
	seen := map[int]bool{}
	r.mu.Lock()
	for _, p := range r.players {
		require.NotNil(t, p.Rank)
		assert.False(t, seen[*p.Rank], "duplicate rank %d", *p.Rank)
		seen[*p.Rank] = true
	}
	r.mu.Unlock()
}

func TestHandStackSimultaneousClicksTieBreak(t *testing.T) {
	r, _, _ := setupRoom(t, 4)
	require.NoError(t, r.Start(seat(r, 0).ID))

	p1, p2, p3 := seat(r, 0), seat(r, 1), seat(r, 2)
	giveSet(r, p1, models.CategoryMango)
	require.NoError(t, r.DeclareSet(p1.ID))

	// The clock never advances, so the declaration and both clicks carry
	// the exact same timestamp. Arrival order breaks the tie: first writer
	// wins, and equal timestamps never produce duplicate ranks.
	rank, err := r.ClickHand(p2.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, rank)

	rank, err = r.ClickHand(p3.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, rank)

	require.NotNil(t, p1.Rank)
	assert.Equal(t, 1, *p1.Rank, "declarer keeps first place")
	assert.Equal(t, 2, *p2.Rank)
	assert.Equal(t, 3, *p3.Rank)
}

func TestHandStackTimeoutAssignsTrailingRanks(t *testing.T) {
	r, mb, clock := setupRoom(t, 4)
	require.NoError(t, r.Start(seat(r, 0).ID))

	p1, p2, p3, p4 := seat(r, 0), seat(r, 1), seat(r, 2), seat(r, 3)
	giveSet(r, p1, models.CategoryMango)
	require.NoError(t, r.DeclareSet(p1.ID))

	clock.Advance(time.Second)
	_, err := r.ClickHand(p3.ID)
	require.NoError(t, err)

	drainCountdown(r)

	// Non-clickers trail in seating order after the last click.
	assert.Equal(t, PhaseRoundEnd, r.Phase())
	require.NotNil(t, p2.Rank)
	require.NotNil(t, p4.Rank)
	assert.Equal(t, 3, *p2.Rank)
	assert.Equal(t, 4, *p4.Rank)

	// Scores follow the table: 1000, 500, 400, 300.
	assert.Equal(t, 1000, p1.Score)
	assert.Equal(t, 500, p3.Score)
	assert.Equal(t, 400, p2.Score)
	assert.Equal(t, 300, p4.Score)

	ends := mb.byType(EventRoundEnd)
	require.Len(t, ends, 1)
	scores, ok := ends[0].Payload["scores"].([]RoundScore)
	require.True(t, ok)
	assert.Len(t, scores, 4)
}

func TestContinueStartsNextRoundCumulative(t *testing.T) {
	r, _, clock := setupRoom(t, 4)
	require.NoError(t, r.Start(seat(r, 0).ID))

	p1 := seat(r, 0)
	giveSet(r, p1, models.CategoryMango)
	require.NoError(t, r.DeclareSet(p1.ID))
	clock.Advance(time.Second)
	drainCountdown(r)
	require.Equal(t, PhaseRoundEnd, r.Phase())

	err := r.Continue(seat(r, 1).ID)
	assert.Equal(t, CodeNotHost, rejectionCode(t, err))

	require.NoError(t, r.Continue(p1.ID))
	assert.Equal(t, PhasePassPhase, r.Phase())
	assert.Equal(t, 2, r.RoundNumber())

	r.mu.Lock()
	for _, p := range r.players {
		assert.Len(t, p.Hand, 4)
		assert.Nil(t, p.Rank)
		assert.False(t, p.HasDeclaredSet)
		assert.NotZero(t, p.Score, "scores carry across rounds")
	}
	r.mu.Unlock()

	// Winning again adds to the running total.
	giveSet(r, p1, models.CategoryOkra)
	require.NoError(t, r.DeclareSet(p1.ID))
	drainCountdown(r)
	assert.Equal(t, 2000, p1.Score)
}

func TestDisconnectKeepsSeatMidGame(t *testing.T) {
	r, _, _ := setupRoom(t, 4)
	require.NoError(t, r.Start(seat(r, 0).ID))

	p2 := seat(r, 1)
	r.Disconnect(p2.ID)

	assert.Equal(t, 4, r.PlayerCount(), "seat survives disconnect mid-game")
	assert.False(t, p2.Connected)
	assert.Equal(t, 4, handSize(r, p2), "hand stays with the seat")

	// The turn sequencer skips the disconnected seat.
	p1 := holder(r)
	require.NoError(t, r.Pass(p1.ID, topCard(r, p1).ID))
	assert.Equal(t, seat(r, 2).ID, holder(r).ID)

	// Disconnecting twice is a no-op.
	r.Disconnect(p2.ID)
	assert.Equal(t, 4, r.PlayerCount())

	require.NoError(t, r.Reconnect(p2.ID, nil))
	assert.True(t, p2.Connected)
}

func TestDisconnectInLobbyRemovesSeat(t *testing.T) {
	r, mb, _ := setupRoom(t, 2)
	var emptied string
	r.OnEmpty = func(code string) { emptied = code }

	r.Disconnect(seat(r, 1).ID)
	assert.Equal(t, 1, r.PlayerCount())
	assert.Len(t, mb.byType(EventPlayerLeft), 1)

	r.Disconnect(seat(r, 0).ID)
	assert.Equal(t, 0, r.PlayerCount())
	assert.Equal(t, "TESTRM", emptied)
}

func TestLeaveOnlyInLobby(t *testing.T) {
	r, _, _ := setupRoom(t, 5)

	require.NoError(t, r.Leave(seat(r, 4).ID))
	assert.Equal(t, 4, r.PlayerCount())

	require.NoError(t, r.Start(seat(r, 0).ID))
	err := r.Leave(seat(r, 1).ID)
	assert.Equal(t, CodeNotInLobby, rejectionCode(t, err))
}

func TestSoleConnectedPlayerGetsOwnCardBack(t *testing.T) {
	r, _, _ := setupRoom(t, 4)
	require.NoError(t, r.Start(seat(r, 0).ID))

	for i := 1; i < 4; i++ {
		r.Disconnect(seat(r, i).ID)
	}

	p1 := seat(r, 0)
	card := topCard(r, p1)
	require.NoError(t, r.Pass(p1.ID, card.ID))

	assert.Equal(t, 4, handSize(r, p1), "passed card comes straight back")
	assert.Equal(t, 16, totalCards(r))
}

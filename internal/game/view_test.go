package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaarchitti/internal/models"
)

func TestViewHidesOtherHands(t *testing.T) {
	r, _, _ := setupRoom(t, 4)
	require.NoError(t, r.Start(seat(r, 0).ID))

	p1 := seat(r, 0)
	v, err := r.ViewFor(p1.ID)
	require.NoError(t, err)

	assert.Equal(t, "TESTRM", v.RoomCode)
	assert.Equal(t, PhasePassPhase, v.Phase)
	assert.Len(t, v.YourHand, 4)

	require.Len(t, v.Players, 4)
	for _, summary := range v.Players {
		assert.Equal(t, 4, summary.CardCount)
	}
}

func TestViewPermittedActions(t *testing.T) {
	r, _, _ := setupRoom(t, 4)

	p1, p2 := seat(r, 0), seat(r, 1)

	// Nothing is permitted in the lobby.
	v, err := r.ViewFor(p1.ID)
	require.NoError(t, err)
	assert.False(t, v.CanPass)
	assert.False(t, v.CanDeclareSet)
	assert.False(t, v.CanClickHand)
	assert.Nil(t, v.CurrentTurnID)

	require.NoError(t, r.Start(p1.ID))

	v, err = r.ViewFor(p1.ID)
	require.NoError(t, err)
	assert.True(t, v.CanPass, "turn holder may pass")
	require.NotNil(t, v.CurrentTurnID)
	assert.Equal(t, p1.ID, *v.CurrentTurnID)

	v, err = r.ViewFor(p2.ID)
	require.NoError(t, err)
	assert.False(t, v.CanPass, "only the turn holder may pass")

	giveSet(r, p2, models.CategoryMango)
	v, err = r.ViewFor(p2.ID)
	require.NoError(t, err)
	assert.True(t, v.CanDeclareSet)

	require.NoError(t, r.DeclareSet(p2.ID))

	v, err = r.ViewFor(p1.ID)
	require.NoError(t, err)
	assert.True(t, v.CanClickHand)
	assert.False(t, v.CanPass)
	assert.Nil(t, v.CurrentTurnID, "no turn holder outside the pass phase")
	require.NotNil(t, v.SetWinnerID)
	assert.Equal(t, p2.ID, *v.SetWinnerID)

	v, err = r.ViewFor(p2.ID)
	require.NoError(t, err)
	assert.False(t, v.CanClickHand, "declarer cannot race")
}

func TestViewUnknownPlayer(t *testing.T) {
	r, _, _ := setupRoom(t, 4)
	_, err := r.ViewFor(uuid.New())
	assert.Equal(t, CodePlayerNotFound, rejectionCode(t, err))
}

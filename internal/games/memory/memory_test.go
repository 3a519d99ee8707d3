// internal/games/memory/memory_test.go
package memory

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprachduell/coordinator/internal/protocol"
	"github.com/sprachduell/coordinator/internal/room"
)

// boardState builds a deterministic two-pair board:
// cards 0/1 are pair 0 (Hund/dog), cards 2/3 are pair 1 (Katze/cat).
func boardState(t *testing.T) (*Engine, *room.State) {
	t.Helper()
	eng := New()
	gs, err := eng.NewGame(json.RawMessage(`{
		"no_shuffle": true,
		"pairs": [
			{"word":"Hund","translation":"dog"},
			{"word":"Katze","translation":"cat"}
		]
	}`))
	require.NoError(t, err)
	st := &room.State{
		Status:     room.StatusInProgress,
		HostID:     "u1",
		MaxPlayers: 2,
		Players: []*room.Player{
			{ID: "u1", UserID: "u1", PlayerName: "Anna", IsHost: true},
			{ID: "u2", UserID: "u2", PlayerName: "Ben"},
		},
		Game: gs,
	}
	eng.Begin(st)
	return eng, st
}

func flip(id int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"card_id":%d}`, id))
}

func TestBeginAssignsFirstTurn(t *testing.T) {
	_, st := boardState(t)
	assert.Equal(t, "u1", st.Game.(*State).CurrentTurn)
}

func TestFlipOutOfTurnRejected(t *testing.T) {
	eng, st := boardState(t)
	_, err := eng.Apply(st, protocol.ActionFlipCard, "u2", flip(0))
	assert.Error(t, err)
}

func TestMatchScoresAndKeepsTurn(t *testing.T) {
	eng, st := boardState(t)

	_, err := eng.Apply(st, protocol.ActionFlipCard, "u1", flip(0))
	require.NoError(t, err)
	events, err := eng.Apply(st, protocol.ActionFlipCard, "u1", flip(1))
	require.NoError(t, err)

	assert.Equal(t, "pair_matched", events[1].Type)
	assert.Equal(t, 1, st.FindPlayer("u1").Score)

	gs := st.Game.(*State)
	assert.Equal(t, "u1", gs.CurrentTurn, "matching keeps the turn")
	assert.True(t, gs.Cards[0].Matched)
	assert.True(t, gs.Cards[1].Matched)
}

func TestMismatchAdvancesTurn(t *testing.T) {
	eng, st := boardState(t)

	_, err := eng.Apply(st, protocol.ActionFlipCard, "u1", flip(0))
	require.NoError(t, err)
	events, err := eng.Apply(st, protocol.ActionFlipCard, "u1", flip(2))
	require.NoError(t, err)

	assert.Equal(t, "pair_mismatch", events[1].Type)
	assert.Equal(t, 0, st.FindPlayer("u1").Score)
	gs := st.Game.(*State)
	assert.Equal(t, "u2", gs.CurrentTurn)
	assert.Empty(t, gs.Flipped)
}

func TestCannotFlipMatchedOrFaceUpCard(t *testing.T) {
	eng, st := boardState(t)

	_, err := eng.Apply(st, protocol.ActionFlipCard, "u1", flip(0))
	require.NoError(t, err)
	_, err = eng.Apply(st, protocol.ActionFlipCard, "u1", flip(0))
	assert.Error(t, err, "same card twice in one turn")

	_, err = eng.Apply(st, protocol.ActionFlipCard, "u1", flip(1))
	require.NoError(t, err)
	_, err = eng.Apply(st, protocol.ActionFlipCard, "u1", flip(0))
	assert.Error(t, err, "matched card stays down")
}

func TestGameFinishesWhenAllPairsMatched(t *testing.T) {
	eng, st := boardState(t)

	for _, pair := range [][2]int{{0, 1}, {2, 3}} {
		_, err := eng.Apply(st, protocol.ActionFlipCard, "u1", flip(pair[0]))
		require.NoError(t, err)
		_, err = eng.Apply(st, protocol.ActionFlipCard, "u1", flip(pair[1]))
		require.NoError(t, err)
	}
	assert.True(t, eng.Finished(st))
	assert.Equal(t, []string{"u1"}, eng.Winners(st))
}

func TestStateBroadcastHidesFaceDownCards(t *testing.T) {
	eng, st := boardState(t)

	// Fresh board: no text and no pair grouping on the wire.
	data, err := json.Marshal(st)
	require.NoError(t, err)
	for _, secret := range []string{"Hund", "dog", "Katze", "pair_id"} {
		assert.NotContains(t, string(data), secret)
	}

	// A face-up card is revealed while the rest of the board stays hidden.
	_, err = eng.Apply(st, protocol.ActionFlipCard, "u1", flip(0))
	require.NoError(t, err)
	data, err = json.Marshal(st)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Hund")
	assert.NotContains(t, string(data), "dog")
	assert.NotContains(t, string(data), "Katze")

	// Matched cards stay revealed once the turn ends.
	_, err = eng.Apply(st, protocol.ActionFlipCard, "u1", flip(1))
	require.NoError(t, err)
	data, err = json.Marshal(st)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Hund")
	assert.Contains(t, string(data), "dog")
	assert.NotContains(t, string(data), "Katze")
}

func TestTurnHandoffWhenTurnHolderLeaves(t *testing.T) {
	eng, st := boardState(t)
	require.Equal(t, "u1", st.Game.(*State).CurrentTurn)

	st.RemovePlayer("u1")
	events := eng.PlayerLeft(st, "u1")

	require.Len(t, events, 1)
	assert.Equal(t, "turn_changed", events[0].Type)
	assert.Equal(t, "u2", st.Game.(*State).CurrentTurn)
}

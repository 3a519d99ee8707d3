// internal/games/genderduel/genderduel_test.go
package genderduel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprachduell/coordinator/internal/protocol"
	"github.com/sprachduell/coordinator/internal/room"
)

func duelState(t *testing.T, eng *Engine) *room.State {
	t.Helper()
	gs, err := eng.NewGame(json.RawMessage(`{
		"words": [
			{"word":"Haus","article":"das","translation":"house"},
			{"word":"Tisch","article":"der","translation":"table"}
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
	return st
}

func submit(article string) json.RawMessage {
	data, _ := json.Marshal(map[string]string{"article": article})
	return data
}

func TestBeginRevealsFirstWord(t *testing.T) {
	eng := New()
	st := duelState(t, eng)
	gs := st.Game.(*State)
	require.NotNil(t, gs.CurrentWord)
	assert.Equal(t, "Haus", gs.CurrentWord.Word)
}

func TestCorrectArticleScoresAndAdvances(t *testing.T) {
	eng := New()
	st := duelState(t, eng)

	events, err := eng.Apply(st, protocol.ActionSubmitGender, "u2", submit("DAS"))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, true, events[0].Data["correct"])
	assert.Equal(t, 1, st.FindPlayer("u2").Score)

	gs := st.Game.(*State)
	assert.Equal(t, 1, gs.CurrentRound)
	assert.Equal(t, "Tisch", gs.CurrentWord.Word)
	assert.False(t, eng.Finished(st))
}

func TestWrongArticleDoesNotAdvance(t *testing.T) {
	eng := New()
	st := duelState(t, eng)

	events, err := eng.Apply(st, protocol.ActionSubmitGender, "u1", submit("die"))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, false, events[0].Data["correct"])
	assert.Equal(t, 0, st.FindPlayer("u1").Score)
	assert.Equal(t, 0, st.Game.(*State).CurrentRound)
}

func TestDuelFinishesWhenWordsExhausted(t *testing.T) {
	eng := New()
	st := duelState(t, eng)

	_, err := eng.Apply(st, protocol.ActionSubmitGender, "u1", submit("das"))
	require.NoError(t, err)
	_, err = eng.Apply(st, protocol.ActionSubmitGender, "u2", submit("der"))
	require.NoError(t, err)

	assert.True(t, eng.Finished(st))
	assert.ElementsMatch(t, []string{"u1", "u2"}, eng.Winners(st))
	assert.Nil(t, st.Game.(*State).CurrentWord)
}

func TestUnknownSubmitterRejected(t *testing.T) {
	eng := New()
	st := duelState(t, eng)
	_, err := eng.Apply(st, protocol.ActionSubmitGender, "ghost", submit("das"))
	assert.Error(t, err)
}

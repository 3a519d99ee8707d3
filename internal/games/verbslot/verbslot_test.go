// internal/games/verbslot/verbslot_test.go
package verbslot

import (
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprachduell/coordinator/internal/protocol"
	"github.com/sprachduell/coordinator/internal/room"
)

type fakeSender struct {
	mu   sync.Mutex
	msgs []map[string]any
}

func (f *fakeSender) Send(msg any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg.(map[string]any))
}

func (f *fakeSender) lastOfType(typ string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.msgs) - 1; i >= 0; i-- {
		if f.msgs[i]["type"] == typ {
			return f.msgs[i]
		}
	}
	return nil
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "bin", Normalize("  BIN "))
	assert.Equal(t, "bin", Normalize("bín"))
	assert.Equal(t, "fahrst", Normalize("fährst"))
	assert.Equal(t, "heisst", Normalize("heißt"))
}

func TestNewGameRequiresRounds(t *testing.T) {
	eng := New()
	_, err := eng.NewGame(nil)
	assert.Error(t, err)
	_, err = eng.NewGame(json.RawMessage(`{"rounds":[]}`))
	assert.Error(t, err)
}

// TestTwoPlayerGame drives a full two-player round through the registry:
// both ready up, the host spins, player 1 answers correctly, and the room
// completes with player 1 declared winner.
func TestTwoPlayerGame(t *testing.T) {
	reg := room.NewRegistry(New(), room.Config{}, testLogger())
	c1, c2 := &fakeSender{}, &fakeSender{}

	seed := json.RawMessage(`{
		"max_players": 2,
		"players": [
			{"id":"u1","user_id":"u1","player_name":"Anna"},
			{"id":"u2","user_id":"u2","player_name":"Ben"}
		],
		"game": {
			"total_rounds": 1,
			"rounds": [
				{"pronoun":"ich","infinitive":"sein","expected":"bin","pool":["bin","bist","ist"]}
			]
		}
	}`)
	reg.Join("g1", c1, "u1", seed)
	reg.Join("g1", c2, "u2", nil)

	reg.Ready("g1", "u1")
	reg.Ready("g1", "u2")

	// Host starts the spin; everyone sees the prompt with its reel pool.
	reg.HandleAction("g1", c1, protocol.ActionStartSpin, "u1", nil)
	spin := c2.lastOfType("spin_result")
	require.NotNil(t, spin)
	data := spin["data"].(map[string]any)
	assert.Equal(t, "ich", data["pronoun"])
	assert.Equal(t, "sein", data["infinitive"])

	// Player 1 answers correctly; room completes with that score.
	reg.HandleAction("g1", c1, protocol.ActionSubmitConjugation, "u1",
		json.RawMessage(`{"answer":"bin"}`))

	answered := c2.lastOfType("answer_submitted")
	require.NotNil(t, answered)
	adata := answered["data"].(map[string]any)
	assert.Equal(t, true, adata["correct"])
	assert.Equal(t, "u1", adata["user_id"])
	assert.Equal(t, 1, adata["score"])

	done := c2.lastOfType("verb_conjugation_slot_game_completed")
	require.NotNil(t, done)
	assert.Equal(t, []string{"u1"}, done["data"].(map[string]any)["winners"])

	update := c1.lastOfType("verb_conjugation_slot_game_state_updated")
	require.NotNil(t, update)
	var st room.State
	st.Game = &State{}
	require.NoError(t, json.Unmarshal(update["data"].(json.RawMessage), &st))
	assert.Equal(t, room.StatusCompleted, st.Status)
}

func TestOnlyHostCanSpin(t *testing.T) {
	eng := New()
	st := twoPlayerState(t, eng)
	_, err := eng.Apply(st, protocol.ActionStartSpin, "u2", nil)
	assert.Error(t, err)
}

func TestSubmitWithoutSpinRejected(t *testing.T) {
	eng := New()
	st := twoPlayerState(t, eng)
	_, err := eng.Apply(st, protocol.ActionSubmitConjugation, "u1",
		json.RawMessage(`{"answer":"bin"}`))
	assert.Error(t, err)
}

func TestWrongAnswerAdvancesWithoutScoring(t *testing.T) {
	eng := New()
	st := twoPlayerState(t, eng)
	_, err := eng.Apply(st, protocol.ActionStartSpin, "u1", nil)
	require.NoError(t, err)

	events, err := eng.Apply(st, protocol.ActionSubmitConjugation, "u2",
		json.RawMessage(`{"answer":"bist"}`))
	require.NoError(t, err)
	assert.Equal(t, false, events[0].Data["correct"])
	assert.Equal(t, 0, st.FindPlayer("u2").Score)

	gs := st.Game.(*State)
	assert.Equal(t, 1, gs.CurrentRound, "submitting always advances the round")
	assert.True(t, eng.Finished(st))
}

func TestTiedScoresReportBothWinners(t *testing.T) {
	eng := New()
	st := twoPlayerState(t, eng)
	winners := eng.Winners(st)
	assert.ElementsMatch(t, []string{"u1", "u2"}, winners)
}

func twoPlayerState(t *testing.T, eng *Engine) *room.State {
	t.Helper()
	gs, err := eng.NewGame(json.RawMessage(`{
		"total_rounds": 1,
		"rounds": [{"pronoun":"ich","infinitive":"sein","expected":"bin"}]
	}`))
	require.NoError(t, err)
	return &room.State{
		Status:     room.StatusInProgress,
		HostID:     "u1",
		MaxPlayers: 2,
		Players: []*room.Player{
			{ID: "u1", UserID: "u1", PlayerName: "Anna", IsHost: true},
			{ID: "u2", UserID: "u2", PlayerName: "Ben"},
		},
		Game: gs,
	}
}

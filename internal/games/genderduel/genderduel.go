// internal/games/genderduel/genderduel.go
package genderduel

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sprachduell/coordinator/internal/protocol"
	"github.com/sprachduell/coordinator/internal/room"
)

// GameType is the wire identifier for the gender duel.
const GameType = "gender_duel"

// Word is one duel round: a noun whose article the players race to call.
type Word struct {
	Word        string `json:"word"`
	Article     string `json:"article"`
	Translation string `json:"translation"`
}

// Prompt is the client-visible part of the current round.
type Prompt struct {
	Word        string `json:"word"`
	Translation string `json:"translation"`
}

// State is the duel's share of the room state. The article list is held
// server-side; only the current prompt is replicated.
type State struct {
	Words        []Word  `json:"-"`
	TotalRounds  int     `json:"total_rounds"`
	CurrentRound int     `json:"current_round"`
	CurrentWord  *Prompt `json:"current_word,omitempty"`
}

type seed struct {
	Words []Word `json:"words"`
}

// Engine implements room.Engine for the gender duel.
type Engine struct{}

func New() *Engine { return &Engine{} }

func (e *Engine) GameType() string { return GameType }
func (e *Engine) MinPlayers() int  { return 2 }

func (e *Engine) NewGame(raw json.RawMessage) (room.GameState, error) {
	var s seed
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("genderduel seed: %w", err)
		}
	}
	if len(s.Words) == 0 {
		return nil, fmt.Errorf("genderduel seed: no words supplied")
	}
	return &State{Words: s.Words, TotalRounds: len(s.Words)}, nil
}

// Begin reveals the first word as the room starts.
func (e *Engine) Begin(st *room.State) []room.Event {
	gs := st.Game.(*State)
	gs.CurrentWord = prompt(gs.Words[0])
	return []room.Event{{
		Type: "round_started",
		Data: map[string]any{
			"current_round": 0,
			"word":          gs.CurrentWord.Word,
			"translation":   gs.CurrentWord.Translation,
		},
	}}
}

func (e *Engine) Apply(st *room.State, act protocol.Action, actor string, data json.RawMessage) ([]room.Event, error) {
	if act != protocol.ActionSubmitGender {
		return nil, fmt.Errorf("unsupported action for %s", GameType)
	}
	gs := st.Game.(*State)
	p := st.FindPlayer(actor)
	if p == nil {
		return nil, fmt.Errorf("submitter %s is not in this game", actor)
	}
	if gs.CurrentRound >= gs.TotalRounds {
		return nil, fmt.Errorf("duel already decided")
	}
	var payload struct {
		Article string `json:"article"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("bad submit_gender payload: %w", err)
	}

	target := gs.Words[gs.CurrentRound]
	correct := strings.EqualFold(strings.TrimSpace(payload.Article), target.Article)

	events := []room.Event{{
		Type: "answer_submitted",
		Data: map[string]any{
			"user_id":     p.UserID,
			"player_name": p.PlayerName,
			"answer":      payload.Article,
			"correct":     correct,
		},
	}}
	if !correct {
		// Wrong calls do not advance the round; the duel stays open until
		// someone names the right article.
		return events, nil
	}

	p.Score++
	events[0].Data["score"] = p.Score
	gs.CurrentRound++
	if gs.CurrentRound < gs.TotalRounds {
		gs.CurrentWord = prompt(gs.Words[gs.CurrentRound])
		events = append(events, room.Event{
			Type: "round_started",
			Data: map[string]any{
				"current_round": gs.CurrentRound,
				"word":          gs.CurrentWord.Word,
				"translation":   gs.CurrentWord.Translation,
			},
		})
	} else {
		gs.CurrentWord = nil
	}
	return events, nil
}

func (e *Engine) Finished(st *room.State) bool {
	gs := st.Game.(*State)
	return gs.CurrentRound >= gs.TotalRounds
}

func (e *Engine) Winners(st *room.State) []string {
	return st.TopScorers()
}

func prompt(w Word) *Prompt {
	return &Prompt{Word: w.Word, Translation: w.Translation}
}

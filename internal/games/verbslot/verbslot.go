// internal/games/verbslot/verbslot.go
package verbslot

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sprachduell/coordinator/internal/protocol"
	"github.com/sprachduell/coordinator/internal/room"
)

// GameType is the wire identifier for the verb-conjugation slot game.
const GameType = "verb_conjugation_slot"

// Round is one spin of the reel: a pronoun/infinitive prompt and the
// conjugation the client roster precomputed for it. Expected never leaves the
// server; the pool is the reel context sent with spin_result.
type Round struct {
	Pronoun    string   `json:"pronoun"`
	Infinitive string   `json:"infinitive"`
	Expected   string   `json:"expected"`
	Pool       []string `json:"pool,omitempty"`
}

// State is the verb game's share of the room state.
type State struct {
	Rounds       []Round `json:"-"`
	TotalRounds  int     `json:"total_rounds"`
	CurrentRound int     `json:"current_round"`
	SpinRevealed bool    `json:"spin_revealed"`
	LastAnswer   *Answer `json:"last_answer,omitempty"`
}

// Answer records the most recent submission for late-joining UI.
type Answer struct {
	UserID  string `json:"user_id"`
	Answer  string `json:"answer"`
	Correct bool   `json:"correct"`
}

type seed struct {
	TotalRounds int     `json:"total_rounds"`
	Rounds      []Round `json:"rounds"`
}

// Engine implements room.Engine for the verb-conjugation slot game.
type Engine struct{}

func New() *Engine { return &Engine{} }

func (e *Engine) GameType() string { return GameType }
func (e *Engine) MinPlayers() int  { return 2 }

// NewGame seeds the round list from the join payload. Prompts and expected
// answers are supplied by the application backend; the coordinator never
// computes conjugations itself.
func (e *Engine) NewGame(raw json.RawMessage) (room.GameState, error) {
	var s seed
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("verbslot seed: %w", err)
		}
	}
	if len(s.Rounds) == 0 {
		return nil, fmt.Errorf("verbslot seed: no rounds supplied")
	}
	total := s.TotalRounds
	if total <= 0 || total > len(s.Rounds) {
		total = len(s.Rounds)
	}
	return &State{Rounds: s.Rounds, TotalRounds: total}, nil
}

func (e *Engine) Begin(st *room.State) []room.Event { return nil }

func (e *Engine) Apply(st *room.State, act protocol.Action, actor string, data json.RawMessage) ([]room.Event, error) {
	gs := st.Game.(*State)
	switch act {
	case protocol.ActionStartSpin:
		return e.startSpin(st, gs, actor)
	case protocol.ActionSubmitConjugation:
		return e.submit(st, gs, actor, data)
	}
	return nil, fmt.Errorf("unsupported action for %s", GameType)
}

// startSpin reveals the current round's prompt. Host only; re-sending is
// idempotent and just re-broadcasts the same reveal.
func (e *Engine) startSpin(st *room.State, gs *State, actor string) ([]room.Event, error) {
	if actor != st.HostID {
		return nil, fmt.Errorf("only the host can start the spin")
	}
	if gs.CurrentRound >= gs.TotalRounds {
		return nil, fmt.Errorf("no rounds left to spin")
	}
	rd := gs.Rounds[gs.CurrentRound]
	gs.SpinRevealed = true
	return []room.Event{{
		Type: "spin_result",
		Data: map[string]any{
			"current_round": gs.CurrentRound,
			"pronoun":       rd.Pronoun,
			"infinitive":    rd.Infinitive,
			"pool":          rd.Pool,
		},
	}}, nil
}

// submit checks a free-text answer against the round's expected form,
// normalized case- and diacritic-insensitively. Submitting always advances
// the round: timed rounds on the client end by submitting a possibly-empty
// answer, so a wrong answer must not stall progression.
func (e *Engine) submit(st *room.State, gs *State, actor string, data json.RawMessage) ([]room.Event, error) {
	if !gs.SpinRevealed {
		return nil, fmt.Errorf("no spin in progress")
	}
	p := st.FindPlayer(actor)
	if p == nil {
		return nil, fmt.Errorf("submitter %s is not in this game", actor)
	}
	var payload struct {
		Answer string `json:"answer"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("bad submit_conjugation payload: %w", err)
		}
	}

	rd := gs.Rounds[gs.CurrentRound]
	correct := Normalize(payload.Answer) == Normalize(rd.Expected)
	if correct {
		p.Score++
	}
	gs.LastAnswer = &Answer{UserID: p.UserID, Answer: payload.Answer, Correct: correct}
	gs.CurrentRound++
	gs.SpinRevealed = false

	events := []room.Event{{
		Type: "answer_submitted",
		Data: map[string]any{
			"user_id":     p.UserID,
			"player_name": p.PlayerName,
			"answer":      payload.Answer,
			"correct":     correct,
			"score":       p.Score,
		},
	}}
	if gs.CurrentRound < gs.TotalRounds {
		events = append(events, room.Event{
			Type: "current_round",
			Data: map[string]any{"current_round": gs.CurrentRound, "total_rounds": gs.TotalRounds},
		})
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

var foldDiacritics = strings.NewReplacer(
	"ä", "a", "ö", "o", "ü", "u", "ß", "ss",
	"á", "a", "à", "a", "â", "a",
	"é", "e", "è", "e", "ê", "e",
	"í", "i", "ì", "i", "î", "i",
	"ó", "o", "ò", "o", "ô", "o",
	"ú", "u", "ù", "u", "û", "u",
)

// Normalize lowercases, trims, and folds diacritics so "BIN", " bin " and
// "bín" all compare equal.
func Normalize(s string) string {
	return foldDiacritics.Replace(strings.ToLower(strings.TrimSpace(s)))
}

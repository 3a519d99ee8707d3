// internal/games/wordsearch/wordsearch.go
package wordsearch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sprachduell/coordinator/internal/protocol"
	"github.com/sprachduell/coordinator/internal/room"
)

// GameType is the wire identifier for the word-search puzzle.
const GameType = "word_search"

// State is the puzzle's share of the room state. The board and solution set
// arrive as seed data; Found maps each solved word to the user who found it
// first, and FoundWords keeps the per-player collections keyed by user id.
type State struct {
	Board      []string            `json:"board"`
	Solutions  map[string]struct{} `json:"-"`
	TotalWords int                 `json:"total_words"`
	Found      map[string]string   `json:"found"`
	FoundWords map[string][]string `json:"found_words"`
}

type seed struct {
	Board []string `json:"board"`
	Words []string `json:"words"`
}

// Engine implements room.Engine for the word-search puzzle.
type Engine struct{}

func New() *Engine { return &Engine{} }

func (e *Engine) GameType() string { return GameType }
func (e *Engine) MinPlayers() int  { return 2 }

func (e *Engine) NewGame(raw json.RawMessage) (room.GameState, error) {
	var s seed
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("wordsearch seed: %w", err)
		}
	}
	if len(s.Words) == 0 {
		return nil, fmt.Errorf("wordsearch seed: no solution words supplied")
	}
	solutions := make(map[string]struct{}, len(s.Words))
	for _, w := range s.Words {
		solutions[normalize(w)] = struct{}{}
	}
	return &State{
		Board:      s.Board,
		Solutions:  solutions,
		TotalWords: len(solutions),
		Found:      make(map[string]string),
		FoundWords: make(map[string][]string),
	}, nil
}

func (e *Engine) Begin(st *room.State) []room.Event { return nil }

// Apply validates a submitted word against the board's solution set and the
// submitting player's found-words collection. First finder only: a word
// already found by anyone scores nothing.
func (e *Engine) Apply(st *room.State, act protocol.Action, actor string, data json.RawMessage) ([]room.Event, error) {
	if act != protocol.ActionSubmitWord {
		return nil, fmt.Errorf("unsupported action for %s", GameType)
	}
	gs := st.Game.(*State)
	p := st.FindPlayer(actor)
	if p == nil {
		return nil, fmt.Errorf("submitter %s is not in this game", actor)
	}
	var payload struct {
		Word string `json:"word"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("bad submit_word payload: %w", err)
	}
	word := normalize(payload.Word)
	if word == "" {
		return nil, fmt.Errorf("empty word")
	}

	result := map[string]any{
		"user_id":     p.UserID,
		"player_name": p.PlayerName,
		"word":        word,
	}
	if _, solution := gs.Solutions[word]; !solution {
		result["correct"] = false
		return []room.Event{{Type: "answer_submitted", Data: result}}, nil
	}
	if _, taken := gs.Found[word]; taken {
		result["correct"] = false
		result["reason"] = "already_found"
		return []room.Event{{Type: "answer_submitted", Data: result}}, nil
	}

	gs.Found[word] = p.UserID
	gs.FoundWords[p.UserID] = append(gs.FoundWords[p.UserID], word)
	p.Score += len([]rune(word))

	result["correct"] = true
	result["score"] = p.Score
	result["words_remaining"] = gs.TotalWords - len(gs.Found)
	return []room.Event{{Type: "word_found", Data: result}}, nil
}

func (e *Engine) Finished(st *room.State) bool {
	gs := st.Game.(*State)
	return len(gs.Found) >= gs.TotalWords
}

func (e *Engine) Winners(st *room.State) []string {
	return st.TopScorers()
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// internal/games/memory/memory.go
package memory

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/sprachduell/coordinator/internal/protocol"
	"github.com/sprachduell/coordinator/internal/room"
)

// GameType is the wire identifier for the memory-translation game.
const GameType = "memory_translation"

// Card is one face-down tile. Each seed pair expands to two cards sharing a
// PairID: the word and its translation.
type Card struct {
	ID      int    `json:"id"`
	PairID  int    `json:"pair_id"`
	Text    string `json:"text"`
	Matched bool   `json:"matched"`
}

// State is the memory game's share of the room state. CurrentTurn holds the
// user id whose flips are currently accepted; Flipped are the card ids turned
// face-up so far this turn (at most two).
type State struct {
	Cards        []*Card `json:"cards"`
	CurrentTurn  string  `json:"current_turn"`
	Flipped      []int   `json:"flipped"`
	MatchedPairs int     `json:"matched_pairs"`
	TotalPairs   int     `json:"total_pairs"`
}

// MarshalJSON keeps face-down cards hidden in replicated state: a card's text
// and pair grouping go on the wire only once it is matched or currently face
// up. Reveals travel through card_flipped and pair_matched events.
func (s *State) MarshalJSON() ([]byte, error) {
	type wireCard struct {
		ID      int    `json:"id"`
		PairID  *int   `json:"pair_id,omitempty"`
		Text    string `json:"text,omitempty"`
		Matched bool   `json:"matched"`
	}
	faceUp := make(map[int]struct{}, len(s.Flipped))
	for _, id := range s.Flipped {
		faceUp[id] = struct{}{}
	}
	cards := make([]wireCard, len(s.Cards))
	for i, c := range s.Cards {
		cards[i] = wireCard{ID: c.ID, Matched: c.Matched}
		if _, up := faceUp[c.ID]; c.Matched || up {
			pid := c.PairID
			cards[i].PairID = &pid
			cards[i].Text = c.Text
		}
	}
	return json.Marshal(struct {
		Cards        []wireCard `json:"cards"`
		CurrentTurn  string     `json:"current_turn"`
		Flipped      []int      `json:"flipped"`
		MatchedPairs int        `json:"matched_pairs"`
		TotalPairs   int        `json:"total_pairs"`
	}{cards, s.CurrentTurn, s.Flipped, s.MatchedPairs, s.TotalPairs})
}

type seed struct {
	Pairs []struct {
		Word        string `json:"word"`
		Translation string `json:"translation"`
	} `json:"pairs"`
	// Shuffle is on by default; tests and deterministic seeds can disable it.
	NoShuffle bool `json:"no_shuffle,omitempty"`
}

// Engine implements room.Engine for memory-translation.
type Engine struct{}

func New() *Engine { return &Engine{} }

func (e *Engine) GameType() string { return GameType }
func (e *Engine) MinPlayers() int  { return 2 }

func (e *Engine) NewGame(raw json.RawMessage) (room.GameState, error) {
	var s seed
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("memory seed: %w", err)
		}
	}
	if len(s.Pairs) == 0 {
		return nil, fmt.Errorf("memory seed: no pairs supplied")
	}
	cards := make([]*Card, 0, len(s.Pairs)*2)
	for i, pair := range s.Pairs {
		cards = append(cards,
			&Card{PairID: i, Text: pair.Word},
			&Card{PairID: i, Text: pair.Translation},
		)
	}
	if !s.NoShuffle {
		rand.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
	}
	for i, c := range cards {
		c.ID = i
	}
	return &State{Cards: cards, TotalPairs: len(s.Pairs)}, nil
}

// Begin hands the first turn to the first roster entry.
func (e *Engine) Begin(st *room.State) []room.Event {
	gs := st.Game.(*State)
	if len(st.Players) > 0 {
		gs.CurrentTurn = st.Players[0].UserID
	}
	return []room.Event{{
		Type: "turn_changed",
		Data: map[string]any{"current_turn": gs.CurrentTurn},
	}}
}

// Apply enforces turn order on flips and validates card pairs before
// advancing the turn: a match scores and keeps the turn, a mismatch flips the
// cards back and passes the turn to the next player.
func (e *Engine) Apply(st *room.State, act protocol.Action, actor string, data json.RawMessage) ([]room.Event, error) {
	if act != protocol.ActionFlipCard {
		return nil, fmt.Errorf("unsupported action for %s", GameType)
	}
	gs := st.Game.(*State)
	p := st.FindPlayer(actor)
	if p == nil {
		return nil, fmt.Errorf("player %s is not in this game", actor)
	}
	if actor != gs.CurrentTurn {
		return nil, fmt.Errorf("not your turn")
	}
	var payload struct {
		CardID int `json:"card_id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("bad flip_card payload: %w", err)
	}
	if payload.CardID < 0 || payload.CardID >= len(gs.Cards) {
		return nil, fmt.Errorf("card %d does not exist", payload.CardID)
	}
	card := gs.Cards[payload.CardID]
	if card.Matched {
		return nil, fmt.Errorf("card %d is already matched", card.ID)
	}
	for _, id := range gs.Flipped {
		if id == card.ID {
			return nil, fmt.Errorf("card %d is already face up", card.ID)
		}
	}

	gs.Flipped = append(gs.Flipped, card.ID)
	events := []room.Event{{
		Type: "card_flipped",
		Data: map[string]any{"user_id": p.UserID, "card_id": card.ID, "text": card.Text},
	}}
	if len(gs.Flipped) < 2 {
		return events, nil
	}

	first := gs.Cards[gs.Flipped[0]]
	second := gs.Cards[gs.Flipped[1]]
	gs.Flipped = nil

	if first.PairID == second.PairID {
		first.Matched = true
		second.Matched = true
		gs.MatchedPairs++
		p.Score++
		events = append(events, room.Event{
			Type: "pair_matched",
			Data: map[string]any{
				"user_id":  p.UserID,
				"card_ids": []int{first.ID, second.ID},
				"score":    p.Score,
			},
		})
		// Matching keeps the turn.
		return events, nil
	}

	gs.CurrentTurn = nextTurn(st, actor)
	events = append(events, room.Event{
		Type: "pair_mismatch",
		Data: map[string]any{
			"user_id":      p.UserID,
			"card_ids":     []int{first.ID, second.ID},
			"current_turn": gs.CurrentTurn,
		},
	})
	return events, nil
}

func (e *Engine) Finished(st *room.State) bool {
	gs := st.Game.(*State)
	return gs.MatchedPairs >= gs.TotalPairs
}

func (e *Engine) Winners(st *room.State) []string {
	return st.TopScorers()
}

// PlayerLeft hands the turn off when the player holding it departs a room
// that keeps running. The departed player is already out of the roster, so
// the turn falls to the first remaining player.
func (e *Engine) PlayerLeft(st *room.State, userID string) []room.Event {
	gs := st.Game.(*State)
	if gs.CurrentTurn != userID || len(st.Players) == 0 {
		return nil
	}
	gs.CurrentTurn = st.Players[0].UserID
	gs.Flipped = nil
	return []room.Event{{
		Type: "turn_changed",
		Data: map[string]any{"current_turn": gs.CurrentTurn},
	}}
}

// nextTurn rotates to the player after actor in roster order.
func nextTurn(st *room.State, actor string) string {
	if len(st.Players) == 0 {
		return ""
	}
	for i, p := range st.Players {
		if p.UserID == actor {
			return st.Players[(i+1)%len(st.Players)].UserID
		}
	}
	return st.Players[0].UserID
}

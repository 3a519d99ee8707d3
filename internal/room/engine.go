// internal/room/engine.go
package room

import (
	"encoding/json"

	"github.com/sprachduell/coordinator/internal/protocol"
)

// Event is a targeted outbound broadcast: a wire type plus its minimal
// payload. Full-state broadcasts are handled by the registry itself.
type Event struct {
	Type string
	Data map[string]any
}

// Engine supplies the game-specific rules layered on the shared room
// lifecycle: action validation and application, round completion, and winner
// computation. One implementation exists per game type; the registry owns
// everything else.
type Engine interface {
	// GameType is the wire identifier, e.g. "verb_conjugation_slot".
	GameType() string

	// MinPlayers is the minimum viable player count for a multiplayer room.
	// Solo rooms (max_players == 1) bypass it.
	MinPlayers() int

	// NewGame builds the game-specific state from the seed data carried in
	// the first join payload (prompts, board letters, word lists, card pairs).
	NewGame(seed json.RawMessage) (GameState, error)

	// Begin is invoked exactly once, on the waiting -> in_progress
	// transition. Returned events are broadcast before the state update.
	Begin(st *State) []Event

	// Apply validates and applies one game action for the acting user. The
	// state is the room's live copy, mutated under the room lock. An error
	// leaves the state untouched and is reported only to the actor.
	Apply(st *State, act protocol.Action, actor string, data json.RawMessage) ([]Event, error)

	// Finished reports whether the round/board is exhausted and the room
	// should complete.
	Finished(st *State) bool

	// Winners declares the winning user ids once Finished returns true.
	Winners(st *State) []string
}

// LeaveObserver is an optional engine extension, consulted when a player
// leaves a room that keeps running, so turn-based games can hand off a turn
// held by the departed player.
type LeaveObserver interface {
	PlayerLeft(st *State, userID string) []Event
}

// Sender is the outbound half of a connection as the registry sees it. The
// registry references senders, it never owns them.
type Sender interface {
	Send(msg any)
}

// FinalScore is one player's end-of-game tally handed to the score reporter.
type FinalScore struct {
	UserID string
	Score  int
	Winner bool
}

// ScoreReporter receives final tallies after a room completes. Reporting is
// fire-and-forget; the room is torn down regardless of delivery.
type ScoreReporter interface {
	Report(gameID string, final []FinalScore)
}

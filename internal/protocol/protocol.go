// internal/protocol/protocol.go
package protocol

import "encoding/json"

// Envelope is the wire shape shared by every inbound and outbound message.
// Data is type-specific and left raw until a handler knows what to decode.
type Envelope struct {
	Type   string          `json:"type"`
	GameID string          `json:"gameId,omitempty"`
	UserID string          `json:"userId,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Action is the canonical internal event type a wire message normalizes to.
// Handlers only ever see canonical actions; legacy and prefixed wire aliases
// are collapsed at the gateway boundary.
type Action int

const (
	ActionUnknown Action = iota
	ActionJoinLobby
	ActionJoinGame
	ActionReady
	ActionUnready
	ActionLeaveGame
	ActionChat

	// Game-specific actions. Each is owned by exactly one game type; the
	// registry routes them to its engine untouched.
	ActionStartSpin
	ActionSubmitConjugation
	ActionSubmitGender
	ActionSubmitWord
	ActionFlipCard
)

// gameActions maps the bare wire names of game-specific actions.
var gameActions = map[string]Action{
	"start_spin":         ActionStartSpin,
	"submit_conjugation": ActionSubmitConjugation,
	"submit_gender":      ActionSubmitGender,
	"submit_word":        ActionSubmitWord,
	"flip_card":          ActionFlipCard,
}

// Normalize resolves a wire message type against the connection's game type.
// Clients send both prefixed and legacy-named variants of the same logical
// event for compatibility; every accepted alias collapses to one Action.
// Anything unrecognized normalizes to ActionUnknown and is ignored upstream.
func Normalize(gameType, wireType string) Action {
	switch wireType {
	case "join_lobby":
		return ActionJoinLobby
	case gameType + "_join_game", "join_" + gameType + "_game", "join_game":
		return ActionJoinGame
	case gameType + "_player_ready", "player_ready":
		return ActionReady
	case gameType + "_player_unready", "player_unready":
		return ActionUnready
	case gameType + "_leave_game", "leave_" + gameType + "_game", "leave_game":
		return ActionLeaveGame
	case "chat":
		return ActionChat
	}
	if act, ok := gameActions[wireType]; ok {
		return act
	}
	// Prefixed variants of game actions, e.g. "verb_conjugation_slot_start_spin".
	if len(wireType) > len(gameType)+1 && wireType[:len(gameType)+1] == gameType+"_" {
		if act, ok := gameActions[wireType[len(gameType)+1:]]; ok {
			return act
		}
	}
	return ActionUnknown
}

// internal/room/state.go
package room

// Status is a room's lifecycle phase. Transitions are monotonic: a room never
// regresses from in_progress to waiting, and completed is terminal.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Player is one entry in a room's roster, matched by UserID. Score is
// monotonically non-decreasing for the lifetime of the room.
type Player struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	PlayerName string `json:"player_name"`
	Score      int    `json:"score"`
	IsReady    bool   `json:"is_ready"`
	IsHost     bool   `json:"is_host"`
}

// GameState is the game-specific portion of a room's state, owned entirely by
// the room's engine. It is serialized inline into full-state broadcasts.
type GameState any

// State is the authoritative snapshot replicated to every client in the room
// on each full-state broadcast.
type State struct {
	Status     Status    `json:"status"`
	Players    []*Player `json:"players"`
	HostID     string    `json:"host_id"`
	MaxPlayers int       `json:"max_players"`

	// Winners holds the user ids with the top score once the room completes.
	// More than one entry means an explicit tie.
	Winners []string `json:"winners,omitempty"`

	Game GameState `json:"game"`
}

// FindPlayer matches by user id first, falling back to the roster-supplied
// player id so clients may reference either.
func (s *State) FindPlayer(idOrUserID string) *Player {
	for _, p := range s.Players {
		if p.UserID == idOrUserID {
			return p
		}
	}
	for _, p := range s.Players {
		if p.ID == idOrUserID {
			return p
		}
	}
	return nil
}

// RemovePlayer deletes the entry matching userID, preserving roster order.
// Returns the removed player, or nil if no entry matched.
func (s *State) RemovePlayer(userID string) *Player {
	for i, p := range s.Players {
		if p.UserID == userID {
			s.Players = append(s.Players[:i], s.Players[i+1:]...)
			return p
		}
	}
	return nil
}

// TopScorers returns the user ids holding the current highest score. Ties are
// reported explicitly, never broken arbitrarily.
func (s *State) TopScorers() []string {
	best := -1
	var winners []string
	for _, p := range s.Players {
		switch {
		case p.Score > best:
			best = p.Score
			winners = []string{p.UserID}
		case p.Score == best:
			winners = append(winners, p.UserID)
		}
	}
	return winners
}

// allReady reports whether the start condition holds: a solo room starts
// immediately, otherwise at least two players must be present and every one
// of them ready.
func (s *State) allReady() bool {
	if s.MaxPlayers == 1 {
		return len(s.Players) == 1 && s.Players[0].IsReady
	}
	if len(s.Players) < 2 {
		return false
	}
	for _, p := range s.Players {
		if !p.IsReady {
			return false
		}
	}
	return true
}

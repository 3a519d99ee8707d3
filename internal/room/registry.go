// internal/room/registry.go
package room

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sprachduell/coordinator/internal/protocol"
)

// Config carries the registry knobs sourced from the environment.
type Config struct {
	// TeardownGrace is how long a completed room stays addressable so clients
	// can render end-of-game UI from the final broadcast.
	TeardownGrace time.Duration

	// IdleTimeout reaps rooms stuck in waiting (host never readied up).
	// Zero disables idle reaping.
	IdleTimeout time.Duration

	// Reporter receives final scores on completion. May be nil.
	Reporter ScoreReporter
}

// Registry owns every room of one game type: the mapping from room id to its
// connection set and authoritative State, the per-game-type lobby set, and
// the connection -> room reverse index used on disconnect. It is the sole
// mutator of room state; engines mutate only through Apply under the room
// lock.
type Registry struct {
	engine Engine
	log    *logrus.Logger
	cfg    Config

	mu     sync.Mutex
	rooms  map[string]*roomEntry
	byConn map[Sender]string
	lobby  map[Sender]struct{}
}

// roomEntry pairs a room's state with its connection set. Each room has its
// own lock so same-room operations are strictly ordered by arrival while
// cross-room operations proceed in parallel.
type roomEntry struct {
	mu    sync.Mutex
	id    string
	state *State
	conns map[Sender]struct{}

	teardown *time.Timer
	idle     *time.Timer
	torn     bool
}

// NewRegistry builds a registry around one game engine.
func NewRegistry(engine Engine, cfg Config, logger *logrus.Logger) *Registry {
	if cfg.TeardownGrace <= 0 {
		cfg.TeardownGrace = time.Minute
	}
	return &Registry{
		engine: engine,
		log:    logger,
		cfg:    cfg,
		rooms:  make(map[string]*roomEntry),
		byConn: make(map[Sender]string),
		lobby:  make(map[Sender]struct{}),
	}
}

// GameType returns the wire identifier of the registry's engine.
func (r *Registry) GameType() string { return r.engine.GameType() }

// JoinLobby registers a connection for pre-room broadcasts.
func (r *Registry) JoinLobby(conn Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lobby[conn] = struct{}{}
}

// LeaveLobby drops a connection from the lobby set.
func (r *Registry) LeaveLobby(conn Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lobby, conn)
}

// BroadcastToLobby sends a payload to every lobby connection of this game
// type, e.g. a "game created" notice before anyone has joined the room.
func (r *Registry) BroadcastToLobby(msg map[string]any) {
	r.mu.Lock()
	conns := make([]Sender, 0, len(r.lobby))
	for c := range r.lobby {
		conns = append(conns, c)
	}
	r.mu.Unlock()
	for _, c := range conns {
		c.Send(msg)
	}
}

// AnnounceGame broadcasts a game-created notice to the lobby. Used by the
// HTTP create endpoint; first joins announce the same way.
func (r *Registry) AnnounceGame(roomID string) {
	r.BroadcastToLobby(map[string]any{
		"type":   r.engine.GameType() + "_game_created",
		"gameId": roomID,
	})
}

type joinPayload struct {
	Players    []playerSeed    `json:"players"`
	MaxPlayers int             `json:"max_players"`
	Game       json.RawMessage `json:"game"`
}

type playerSeed struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	PlayerName string `json:"player_name"`
}

// Join adds a connection to a room, creating the room on first join for an
// unseen id. The joining user's id becomes the host of a freshly created
// room; the player roster and game seed come from the join payload. Duplicate
// joins from the same connection or user are no-ops beyond refreshing
// membership. Every join ends with a full-state broadcast.
func (r *Registry) Join(roomID string, conn Sender, userID string, data json.RawMessage) {
	if roomID == "" || userID == "" {
		r.log.Warnf("%s: join missing gameId or userId, dropped", r.engine.GameType())
		return
	}

	var payload joinPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			r.log.Warnf("%s room %s: unparsable join payload: %v", r.engine.GameType(), roomID, err)
		}
	}

	r.mu.Lock()
	ent, exists := r.rooms[roomID]
	if !exists {
		game, err := r.engine.NewGame(payload.Game)
		if err != nil {
			r.mu.Unlock()
			r.log.Warnf("%s room %s: rejecting create, bad seed: %v", r.engine.GameType(), roomID, err)
			conn.Send(map[string]any{
				"type":    "error",
				"gameId":  roomID,
				"message": "invalid game seed",
			})
			return
		}
		ent = &roomEntry{
			id:    roomID,
			state: newState(userID, payload, game),
			conns: make(map[Sender]struct{}),
		}
		r.rooms[roomID] = ent
		if r.cfg.IdleTimeout > 0 {
			ent.idle = time.AfterFunc(r.cfg.IdleTimeout, func() { r.reapIdle(ent) })
		}
	}
	r.byConn[conn] = roomID
	r.mu.Unlock()

	if !exists {
		r.log.Infof("%s room %s: created by user %s", r.engine.GameType(), roomID, userID)
		r.AnnounceGame(roomID)
	}

	ent.mu.Lock()
	if ent.torn {
		ent.mu.Unlock()
		return
	}
	st := ent.state

	if _, member := ent.conns[conn]; !member {
		// Capacity check applies only to genuinely new players.
		if st.FindPlayer(userID) == nil && len(st.Players) >= st.MaxPlayers {
			ent.mu.Unlock()
			r.mu.Lock()
			if r.byConn[conn] == roomID {
				delete(r.byConn, conn)
			}
			r.mu.Unlock()
			conn.Send(map[string]any{
				"type":   "join_rejected",
				"gameId": roomID,
				"data":   map[string]any{"reason": "room_full"},
			})
			return
		}
		ent.conns[conn] = struct{}{}
	}

	if st.FindPlayer(userID) == nil {
		st.Players = append(st.Players, seedPlayer(userID, payload, st.HostID == userID))
	}

	r.broadcastStateLocked(ent)
	ent.mu.Unlock()
}

// newState builds the initial waiting state for a freshly created room.
func newState(hostID string, payload joinPayload, game GameState) *State {
	maxPlayers := payload.MaxPlayers
	if maxPlayers <= 0 {
		maxPlayers = 2
	}
	st := &State{
		Status:     StatusWaiting,
		HostID:     hostID,
		MaxPlayers: maxPlayers,
		Game:       game,
	}
	for _, seed := range payload.Players {
		if len(st.Players) >= maxPlayers {
			break
		}
		uid := seed.UserID
		if uid == "" {
			uid = seed.ID
		}
		if uid == "" || st.FindPlayer(uid) != nil {
			continue
		}
		st.Players = append(st.Players, &Player{
			ID:         nonEmpty(seed.ID, uid),
			UserID:     uid,
			PlayerName: nonEmpty(seed.PlayerName, uid),
			IsHost:     uid == hostID,
		})
	}
	return st
}

// seedPlayer builds the roster entry for a user joining an existing room.
func seedPlayer(userID string, payload joinPayload, isHost bool) *Player {
	p := &Player{ID: userID, UserID: userID, PlayerName: userID, IsHost: isHost}
	for _, seed := range payload.Players {
		if seed.UserID == userID || seed.ID == userID {
			p.ID = nonEmpty(seed.ID, userID)
			p.PlayerName = nonEmpty(seed.PlayerName, userID)
			break
		}
	}
	return p
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// Ready marks the matching player ready. The raw ready event is broadcast
// first for immediate UI feedback, then readiness is recomputed: a solo room
// starts at once, a multiplayer room once at least two players are present
// and all of them are ready. Ready messages are inert once the room has
// started, and duplicates never double-count.
func (r *Registry) Ready(roomID, idOrUserID string) {
	ent := r.room(roomID)
	if ent == nil {
		return
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.torn {
		return
	}
	st := ent.state

	p := st.FindPlayer(idOrUserID)
	if p == nil {
		r.log.Warnf("%s room %s: ready from unknown player %s", r.engine.GameType(), roomID, idOrUserID)
		return
	}

	r.broadcastLocked(ent, Event{
		Type: r.engine.GameType() + "_player_ready",
		Data: map[string]any{"user_id": p.UserID, "player_name": p.PlayerName, "is_ready": true},
	})

	if st.Status != StatusWaiting || p.IsReady {
		return
	}
	p.IsReady = true

	if st.allReady() {
		r.startLocked(ent)
	}
	r.broadcastStateLocked(ent)
}

// Unready clears a player's ready flag while the room is still waiting.
func (r *Registry) Unready(roomID, idOrUserID string) {
	ent := r.room(roomID)
	if ent == nil {
		return
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.torn || ent.state.Status != StatusWaiting {
		return
	}
	p := ent.state.FindPlayer(idOrUserID)
	if p == nil || !p.IsReady {
		return
	}
	p.IsReady = false
	r.broadcastLocked(ent, Event{
		Type: r.engine.GameType() + "_player_ready",
		Data: map[string]any{"user_id": p.UserID, "player_name": p.PlayerName, "is_ready": false},
	})
	r.broadcastStateLocked(ent)
}

// startLocked performs the single waiting -> in_progress transition.
// Caller holds the room lock; allReady has already been checked.
func (r *Registry) startLocked(ent *roomEntry) {
	ent.state.Status = StatusInProgress
	if ent.idle != nil {
		ent.idle.Stop()
		ent.idle = nil
	}
	r.log.Infof("%s room %s: all ready, starting with %d players",
		r.engine.GameType(), ent.id, len(ent.state.Players))
	for _, ev := range r.engine.Begin(ent.state) {
		r.broadcastLocked(ent, ev)
	}
}

// Leave removes a connection and its player from the room. The departing
// host's role transfers to the first remaining player. A room left with zero
// players, or with fewer than the game's minimum, is force-ended and torn
// down immediately.
func (r *Registry) Leave(roomID string, conn Sender, userID string) {
	r.mu.Lock()
	if r.byConn[conn] == roomID {
		delete(r.byConn, conn)
	}
	ent := r.rooms[roomID]
	r.mu.Unlock()
	if ent == nil {
		return
	}
	r.removeMember(ent, conn, userID)
}

// Disconnect maps a transport close to the leave path, resolved through the
// reverse index so the leave runs exactly once per connection.
func (r *Registry) Disconnect(conn Sender, userID string) {
	r.mu.Lock()
	delete(r.lobby, conn)
	roomID, ok := r.byConn[conn]
	if ok {
		delete(r.byConn, conn)
	}
	var ent *roomEntry
	if ok {
		ent = r.rooms[roomID]
	}
	r.mu.Unlock()
	if ent == nil {
		return
	}
	r.removeMember(ent, conn, userID)
}

func (r *Registry) removeMember(ent *roomEntry, conn Sender, userID string) {
	ent.mu.Lock()
	if ent.torn {
		ent.mu.Unlock()
		return
	}
	delete(ent.conns, conn)
	st := ent.state
	departed := st.RemovePlayer(userID)
	remaining := len(st.Players)

	if remaining == 0 {
		ent.mu.Unlock()
		r.teardownNow(ent)
		return
	}
	if st.Status != StatusCompleted && remaining < r.minViable(st) {
		r.broadcastLocked(ent, Event{
			Type: "game_ended",
			Data: map[string]any{"reason": "not_enough_players"},
		})
		ent.mu.Unlock()
		r.teardownNow(ent)
		return
	}

	if departed != nil && departed.IsHost {
		st.HostID = st.Players[0].UserID
		st.Players[0].IsHost = true
		r.log.Infof("%s room %s: host left, migrated to %s", r.engine.GameType(), ent.id, st.HostID)
	}
	if obs, ok := r.engine.(LeaveObserver); ok && departed != nil {
		for _, ev := range obs.PlayerLeft(st, userID) {
			r.broadcastLocked(ent, ev)
		}
	}
	r.broadcastStateLocked(ent)
	ent.mu.Unlock()
}

// minViable is 1 for solo/practice rooms, otherwise the engine minimum.
func (r *Registry) minViable(st *State) int {
	if st.MaxPlayers == 1 {
		return 1
	}
	return r.engine.MinPlayers()
}

// HandleAction routes a game-specific action to the engine under the room
// lock, broadcasts the resulting events and updated state, and drives the
// in_progress -> completed transition when the engine reports the board or
// round sequence exhausted. Actions referencing an unknown room id are no-ops.
func (r *Registry) HandleAction(roomID string, conn Sender, act protocol.Action, actor string, data json.RawMessage) {
	ent := r.room(roomID)
	if ent == nil {
		return
	}

	ent.mu.Lock()
	if ent.torn {
		ent.mu.Unlock()
		return
	}
	st := ent.state

	if act == protocol.ActionChat {
		r.chatLocked(ent, actor, data)
		ent.mu.Unlock()
		return
	}

	if st.Status != StatusInProgress {
		ent.mu.Unlock()
		r.log.Debugf("%s room %s: action %d ignored in status %s", r.engine.GameType(), roomID, act, st.Status)
		return
	}

	events, err := r.engine.Apply(st, act, actor, data)
	if err != nil {
		ent.mu.Unlock()
		r.log.Warnf("%s room %s: rejected action from %s: %v", r.engine.GameType(), roomID, actor, err)
		if conn != nil {
			conn.Send(map[string]any{"type": "error", "gameId": roomID, "message": err.Error()})
		}
		return
	}
	for _, ev := range events {
		r.broadcastLocked(ent, ev)
	}

	var final []FinalScore
	if st.Status == StatusInProgress && r.engine.Finished(st) {
		st.Status = StatusCompleted
		st.Winners = r.engine.Winners(st)

		scores := make(map[string]int, len(st.Players))
		for _, p := range st.Players {
			scores[p.UserID] = p.Score
			final = append(final, FinalScore{
				UserID: p.UserID,
				Score:  p.Score,
				Winner: contains(st.Winners, p.UserID),
			})
		}
		r.broadcastLocked(ent, Event{
			Type: r.engine.GameType() + "_game_completed",
			Data: map[string]any{"winners": st.Winners, "scores": scores},
		})
		ent.teardown = time.AfterFunc(r.cfg.TeardownGrace, func() { r.teardownNow(ent) })
		r.log.Infof("%s room %s: completed, winners %v", r.engine.GameType(), ent.id, st.Winners)
	}

	r.broadcastStateLocked(ent)
	ent.mu.Unlock()

	if final != nil && r.cfg.Reporter != nil {
		r.cfg.Reporter.Report(ent.id, final)
	}
}

func (r *Registry) chatLocked(ent *roomEntry, actor string, data json.RawMessage) {
	var payload struct {
		Msg string `json:"msg"`
	}
	_ = json.Unmarshal(data, &payload)
	if payload.Msg == "" {
		return
	}
	name := actor
	if p := ent.state.FindPlayer(actor); p != nil {
		name = p.PlayerName
	}
	r.broadcastLocked(ent, Event{
		Type: "chat",
		Data: map[string]any{
			"user_id":     actor,
			"player_name": name,
			"msg":         payload.Msg,
			"ts":          time.Now().Unix(),
		},
	})
}

// BroadcastState serializes the current state and sends it to every
// connection in the room.
func (r *Registry) BroadcastState(roomID string) {
	ent := r.room(roomID)
	if ent == nil {
		return
	}
	ent.mu.Lock()
	if !ent.torn {
		r.broadcastStateLocked(ent)
	}
	ent.mu.Unlock()
}

// broadcastStateLocked marshals under the room lock so the snapshot is
// consistent even while later messages keep mutating the state.
func (r *Registry) broadcastStateLocked(ent *roomEntry) {
	data, err := json.Marshal(ent.state)
	if err != nil {
		r.log.Warnf("%s room %s: failed to marshal state: %v", r.engine.GameType(), ent.id, err)
		return
	}
	msg := map[string]any{
		"type":   r.engine.GameType() + "_game_state_updated",
		"gameId": ent.id,
		"data":   json.RawMessage(data),
	}
	for c := range ent.conns {
		c.Send(msg)
	}
}

func (r *Registry) broadcastLocked(ent *roomEntry, ev Event) {
	msg := map[string]any{
		"type":   ev.Type,
		"gameId": ent.id,
		"data":   ev.Data,
	}
	for c := range ent.conns {
		c.Send(msg)
	}
}

// room resolves a room id, or nil for stale/unknown references.
func (r *Registry) room(roomID string) *roomEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms[roomID]
}

// reapIdle force-ends a room whose host never readied up.
func (r *Registry) reapIdle(ent *roomEntry) {
	ent.mu.Lock()
	if ent.torn || ent.state.Status != StatusWaiting {
		ent.mu.Unlock()
		return
	}
	r.broadcastLocked(ent, Event{
		Type: "game_ended",
		Data: map[string]any{"reason": "idle_timeout"},
	})
	ent.mu.Unlock()
	r.log.Infof("%s room %s: reaped after idle timeout", r.engine.GameType(), ent.id)
	r.teardownNow(ent)
}

// teardownNow frees the room's state and connection set and clears the
// reverse index. Subsequent messages referencing the room id are no-ops.
func (r *Registry) teardownNow(ent *roomEntry) {
	ent.mu.Lock()
	if ent.torn {
		ent.mu.Unlock()
		return
	}
	ent.torn = true
	if ent.teardown != nil {
		ent.teardown.Stop()
	}
	if ent.idle != nil {
		ent.idle.Stop()
	}
	conns := make([]Sender, 0, len(ent.conns))
	for c := range ent.conns {
		conns = append(conns, c)
	}
	ent.conns = make(map[Sender]struct{})
	ent.mu.Unlock()

	r.mu.Lock()
	delete(r.rooms, ent.id)
	for _, c := range conns {
		if r.byConn[c] == ent.id {
			delete(r.byConn, c)
		}
	}
	r.mu.Unlock()
	r.log.Infof("%s room %s: torn down", r.engine.GameType(), ent.id)
}

// Info is one row of the room listing exposed over HTTP.
type Info struct {
	GameID     string `json:"game_id"`
	Status     Status `json:"status"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"max_players"`
}

// Snapshot lists the registry's current rooms.
func (r *Registry) Snapshot() []Info {
	r.mu.Lock()
	entries := make([]*roomEntry, 0, len(r.rooms))
	for _, ent := range r.rooms {
		entries = append(entries, ent)
	}
	r.mu.Unlock()

	infos := make([]Info, 0, len(entries))
	for _, ent := range entries {
		ent.mu.Lock()
		infos = append(infos, Info{
			GameID:     ent.id,
			Status:     ent.state.Status,
			Players:    len(ent.state.Players),
			MaxPlayers: ent.state.MaxPlayers,
		})
		ent.mu.Unlock()
	}
	return infos
}

// HasRoom reports whether a room id is currently addressable.
func (r *Registry) HasRoom(roomID string) bool {
	return r.room(roomID) != nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

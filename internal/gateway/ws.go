// internal/gateway/ws.go
package gateway

import (
	"context"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/sprachduell/coordinator/internal/middleware"
	"github.com/sprachduell/coordinator/internal/protocol"
	"github.com/sprachduell/coordinator/internal/room"
	"github.com/sprachduell/coordinator/internal/ws"
)

// BadSubprotocolError is the close code for clients that negotiated the
// wrong subprotocol. Unknown game types are rejected before the upgrade.
const BadSubprotocolError = 3000

// WSHandler upgrades /ws/{gameType} requests, registers the connection in the
// game type's lobby set, and runs the read/write pumps. On transport close
// the owning room (if any) is notified exactly once via the leave path.
func WSHandler(logger *logrus.Logger, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameType := strings.Trim(strings.TrimPrefix(r.URL.Path, "/ws/"), "/")
		if gameType == "" {
			gameType = r.URL.Query().Get("gameType")
		}
		reg, ok := hub.Registry(gameType)
		if !ok {
			http.Error(w, "unknown gameType", http.StatusNotFound)
			return
		}

		sock, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"coordinator"},
			OriginPatterns: hub.cfg.OriginPatterns,
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		conn := ws.New(sock, gameType, cancel, logger)
		defer conn.Close(websocket.StatusInternalError, "handler finished")

		if sock.Subprotocol() != "coordinator" {
			conn.Close(BadSubprotocolError, "client must speak the coordinator subprotocol")
			return
		}

		middleware.LogWebSocketConnect(logger, r.RemoteAddr, gameType)

		reg.JoinLobby(conn)
		go conn.WritePump(ctx)
		conn.ReadPump(ctx, func(env protocol.Envelope) {
			dispatch(reg, conn, env, logger)
		})

		// Transport closed: run the leave path exactly once.
		reg.Disconnect(conn, conn.UserID)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, gameType)
	}
}

// dispatch normalizes the wire type and routes the canonical action. Unknown
// types are ignored, not errors.
func dispatch(reg *room.Registry, conn *ws.Conn, env protocol.Envelope, logger *logrus.Logger) {
	act := protocol.Normalize(reg.GameType(), env.Type)
	switch act {
	case protocol.ActionJoinLobby:
		// Lobby membership was established on upgrade; re-sent joins are no-ops.
	case protocol.ActionJoinGame:
		if env.UserID != "" {
			conn.UserID = env.UserID
		}
		reg.Join(env.GameID, conn, conn.UserID, env.Data)
	case protocol.ActionReady:
		reg.Ready(env.GameID, actorID(conn, env))
	case protocol.ActionUnready:
		reg.Unready(env.GameID, actorID(conn, env))
	case protocol.ActionLeaveGame:
		reg.Leave(env.GameID, conn, actorID(conn, env))
	case protocol.ActionUnknown:
		logger.Debugf("%s: ignoring unknown message type %q", reg.GameType(), env.Type)
	default:
		reg.HandleAction(env.GameID, conn, act, actorID(conn, env), env.Data)
	}
}

// actorID prefers the identity asserted on the message, falling back to the
// one recorded at join time.
func actorID(conn *ws.Conn, env protocol.Envelope) string {
	if env.UserID != "" {
		return env.UserID
	}
	return conn.UserID
}

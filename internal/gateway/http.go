// internal/gateway/http.go
package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// HealthzHandler reports liveness.
func HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

// CreateGameHandler mints a fresh room id for a game type and announces it to
// that type's lobby. The room itself is created lazily on the first join, so
// an announced id nobody joins costs nothing.
func CreateGameHandler(logger *logrus.Logger, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			GameType string `json:"gameType"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request payload", http.StatusBadRequest)
			return
		}
		reg, ok := hub.Registry(body.GameType)
		if !ok {
			http.Error(w, "unknown gameType", http.StatusBadRequest)
			return
		}

		gameID := uuid.NewString()
		reg.AnnounceGame(gameID)
		logger.Infof("%s: announced new game %s", body.GameType, gameID)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"game_id":  gameID,
			"gameType": body.GameType,
		})
	}
}

// ListGamesHandler lists the current rooms across all game types, optionally
// filtered with ?gameType=.
func ListGamesHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := r.URL.Query().Get("gameType")
		out := make(map[string]any)
		for _, gt := range hub.GameTypes() {
			if filter != "" && gt != filter {
				continue
			}
			reg, _ := hub.Registry(gt)
			out[gt] = reg.Snapshot()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

// internal/gateway/hub.go
package gateway

import (
	"github.com/sirupsen/logrus"

	"github.com/sprachduell/coordinator/internal/config"
	"github.com/sprachduell/coordinator/internal/games/genderduel"
	"github.com/sprachduell/coordinator/internal/games/memory"
	"github.com/sprachduell/coordinator/internal/games/verbslot"
	"github.com/sprachduell/coordinator/internal/games/wordsearch"
	"github.com/sprachduell/coordinator/internal/room"
)

// Hub owns one room registry per game type and routes each accepted
// connection to the registry matching its gameType.
type Hub struct {
	log        *logrus.Logger
	cfg        config.Config
	registries map[string]*room.Registry
}

// NewHub wires the four game engines into their registries.
func NewHub(cfg config.Config, reporter room.ScoreReporter, logger *logrus.Logger) *Hub {
	rcfg := room.Config{
		TeardownGrace: cfg.TeardownGrace,
		IdleTimeout:   cfg.IdleTimeout,
		Reporter:      reporter,
	}
	engines := []room.Engine{
		verbslot.New(),
		genderduel.New(),
		wordsearch.New(),
		memory.New(),
	}
	registries := make(map[string]*room.Registry, len(engines))
	for _, e := range engines {
		registries[e.GameType()] = room.NewRegistry(e, rcfg, logger)
	}
	return &Hub{log: logger, cfg: cfg, registries: registries}
}

// Registry resolves a game type to its registry.
func (h *Hub) Registry(gameType string) (*room.Registry, bool) {
	r, ok := h.registries[gameType]
	return r, ok
}

// GameTypes lists the game types the hub serves.
func (h *Hub) GameTypes() []string {
	types := make([]string, 0, len(h.registries))
	for gt := range h.registries {
		types = append(types, gt)
	}
	return types
}

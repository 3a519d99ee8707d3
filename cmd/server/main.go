// cmd/server/main.go
package main

import (
	"log"
	"net/http"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/sprachduell/coordinator/internal/config"
	"github.com/sprachduell/coordinator/internal/gateway"
	"github.com/sprachduell/coordinator/internal/middleware"
	"github.com/sprachduell/coordinator/internal/room"
	"github.com/sprachduell/coordinator/internal/scores"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	cfg := config.Load()

	var reporter room.ScoreReporter
	if rep := scores.NewReporter(cfg.ScoreEndpoint, logger); rep != nil {
		reporter = rep
	} else {
		logger.Info("SCORE_ENDPOINT unset, score reporting disabled")
	}
	hub := gateway.NewHub(cfg, reporter, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", gateway.HealthzHandler())

	// game websocket: /ws/{gameType}
	mux.Handle("/ws/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		gateway.WSHandler(logger, hub),
	)))

	// game endpoints
	mux.Handle("/games/create", middleware.LogMiddleware(logger)(http.HandlerFunc(
		gateway.CreateGameHandler(logger, hub),
	)))
	mux.Handle("/games/list", middleware.LogMiddleware(logger)(http.HandlerFunc(
		gateway.ListGamesHandler(hub),
	)))

	logger.Infof("Running on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

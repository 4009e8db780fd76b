// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"time"

	"github.com/bunkergame/bunker/internal/auth"
	"github.com/bunkergame/bunker/internal/cache"
	"github.com/bunkergame/bunker/internal/config"
	"github.com/bunkergame/bunker/internal/database"
	"github.com/bunkergame/bunker/internal/game"
	"github.com/bunkergame/bunker/internal/handlers"
	"github.com/bunkergame/bunker/internal/middleware"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	if cfg.JWTPrivateKeyPath != "" && cfg.JWTPublicKeyPath != "" {
		if err := auth.InitFromPath(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath); err != nil {
			log.Fatalf("auth keys: %v", err)
		}
	} else {
		auth.Init()
	}

	if err := database.ConnectDB(); err != nil {
		log.Fatalf("database: %v", err)
	}
	if cfg.DisableHistorian {
		logger.Info("Historian publishing disabled.")
	} else if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("Redis unavailable, action history disabled: %v", err)
	}

	mux := http.NewServeMux()

	// user endpoints
	mux.HandleFunc("/user/create", handlers.CreateUserHandler)
	mux.HandleFunc("/user/login", handlers.LoginHandler)
	mux.HandleFunc("/user/claim", handlers.ClaimEphemeralHandler)

	srv := handlers.NewGameServer()
	srv.PersistResults = !cfg.DisablePersist
	srv.Tune = func(g *game.BunkerGame) {
		g.TurnDuration = time.Duration(cfg.TurnTimeoutSec) * time.Second
		g.DiscussionDuration = time.Duration(cfg.DiscussionSec) * time.Second
		g.DefenseDuration = time.Duration(cfg.DefenseSec) * time.Second
		g.CancelWindow = time.Duration(cfg.CancelWindowSec) * time.Second
		g.RevealGrace = time.Duration(cfg.RevealGraceSec) * time.Second
	}

	// game REST endpoints (create, list, rejoin)
	mux.Handle("/game/", middleware.LogMiddleware(logger)(srv))

	// game websocket
	mux.Handle("/game/ws/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.GameWSHandler(logger, srv),
	)))

	addr := ":" + cfg.Port
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

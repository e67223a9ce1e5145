package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wfunc/connectfour/auth"
	"github.com/wfunc/connectfour/broadcast"
	"github.com/wfunc/connectfour/config"
	"github.com/wfunc/connectfour/lobby"
	"github.com/wfunc/connectfour/logger"
	"github.com/wfunc/connectfour/monitor"
	"github.com/wfunc/connectfour/room"
	"github.com/wfunc/connectfour/server"
	"github.com/wfunc/connectfour/session"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	sessions := session.NewManager()
	mon := monitor.NewMonitor(cfg.Metrics.Namespace)
	l := lobby.New(
		sessions,
		room.NewRoomManager(),
		broadcast.NewSessionBroadcaster(sessions),
		lobby.WithMetrics(mon),
		lobby.WithEventBuffer(cfg.Lobby.EventBuffer),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lobbyCtx, stopLobby := context.WithCancel(context.Background())
	lobbyDone := make(chan struct{})
	go func() {
		defer close(lobbyDone)
		if err := l.Run(lobbyCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Log.Errorf("Lobby stopped: %v", err)
		}
	}()

	verifier := auth.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.IdentityClaim)
	gameServer := server.NewGameServer(server.OptionsFromConfig(cfg), l, verifier, mon)

	serveErr := make(chan error, 1)
	go func() {
		logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
		serveErr <- gameServer.Start()
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Log.Errorf("Failed to start server: %v", err)
		}
	case <-ctx.Done():
		logger.Log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := gameServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warnf("Server shutdown: %v", err)
	}
	stopLobby()
	<-lobbyDone
	sessions.CloseAll()
	logger.Log.Info("Bye")
}

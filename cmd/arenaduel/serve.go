package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/arenaduel/battle-server/internal/appconfig"
	"github.com/arenaduel/battle-server/internal/battle"
	"github.com/arenaduel/battle-server/internal/httpapi"
	"github.com/arenaduel/battle-server/internal/models"
)

var (
	flagAddr       string
	flagUploadsDir string
	flagTickHz     int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the WebSocket + HTTP battle server",
	Long: `Start the battle server: a WebSocket endpoint for matchmaking and
in-match traffic, and an HTTP surface for 3D model uploads.

Examples:
  arenaduel serve
  arenaduel serve --addr :9090
  arenaduel serve --db ./models.db
  arenaduel serve --uploads-dir ./data/models --tick-hz 30`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (overrides config)")
	serveCmd.Flags().StringVar(&flagUploadsDir, "uploads-dir", "", "Model upload directory (overrides config)")
	serveCmd.Flags().IntVar(&flagTickHz, "tick-hz", 0, "Match Orchestrator tick rate in Hz (overrides config)")
}

func runServe(_ *cobra.Command, _ []string) {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "arenaduel",
	})

	cfg, err := appconfig.Load(flagConfigPath)
	if err != nil {
		logger.Fatal("load config", "err", err)
	}
	if flagAddr != "" {
		cfg.Addr = flagAddr
	}
	if flagDBPath != "" {
		cfg.DBPath = flagDBPath
	}
	if flagUploadsDir != "" {
		cfg.UploadsDir = flagUploadsDir
	}
	if flagTickHz != 0 {
		cfg.TickHz = flagTickHz
	}

	store, err := models.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal("open model store", "err", err)
	}
	defer store.Close()

	lobby := battle.NewLobbyRegistry()
	matches := battle.NewMatchRegistry()
	channels := battle.NewChannelRegistry()
	orch := battle.NewOrchestrator(matches, cfg.TickInterval(), logger)
	registry := battle.NewRegistry(lobby, matches, channels, orch, store, logger)

	orch.Start()
	defer orch.Stop()

	cleanupStop := make(chan struct{})
	go matches.CleanupLoop(cleanupStop, orch, cfg.CleanupPeriod(), cfg.MatchValidityWindow())
	defer close(cleanupStop)

	api := httpapi.NewServer(registry, store, cfg.UploadsDir, cfg.LivenessProbeInterval(), cfg.LivenessTimeout(), logger)
	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: api.NewMux(),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("arena duel server listening", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Fatal("server error", "err", err)
		}
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", "err", err)
		}
	}

	fmt.Fprintln(os.Stderr, "arenaduel: stopped")
}

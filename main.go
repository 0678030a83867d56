package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/storesense/counterdash/internal/cameras"
	"github.com/storesense/counterdash/internal/config"
	"github.com/storesense/counterdash/internal/confirm"
	"github.com/storesense/counterdash/internal/gateway"
	"github.com/storesense/counterdash/internal/logger"
	"github.com/storesense/counterdash/internal/notify"
	"github.com/storesense/counterdash/internal/service"
	"github.com/storesense/counterdash/internal/session"
	"github.com/storesense/counterdash/internal/state"
	"github.com/storesense/counterdash/internal/stats"
	"github.com/storesense/counterdash/internal/theme"
	"github.com/storesense/counterdash/internal/web"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&configPath, "c", "", "Path to configuration file (short)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting counter dashboard",
		"version", version,
		"build_time", buildTime,
		"git_commit", gitCommit,
		"remote", cfg.Remote.BaseURL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := state.NewStore(cfg.StateDBPath(), log)
	if err != nil {
		log.Error("Failed to open state store", "path", cfg.StateDBPath(), "error", err)
		os.Exit(1)
	}
	defer store.Close()

	themeCtl, err := theme.NewController(ctx, store, log)
	if err != nil {
		log.Error("Failed to load theme preference", "error", err)
		os.Exit(1)
	}

	alerts := notify.NewCenter(cfg.Alerts.TTL, log)
	busy := &notify.Busy{}
	gw := gateway.NewClient(gateway.ClientConfig{
		BaseURL: cfg.Remote.BaseURL,
		Timeout: cfg.Remote.Timeout,
	}, alerts, busy, log)

	// The operator client carries its confirmation with each request.
	views := web.NewViewStore()
	sessionCtl := session.NewController(gw, cfg.Poll, views.Sinks(), confirm.FromContext, alerts, log)
	camerasCtl := cameras.NewController(gw, confirm.FromContext, sessionCtl, alerts, log)
	statsCtl := stats.NewController(gw, views, cfg.Stats.DefaultDays, alerts, log)

	webServer := web.NewServer(&cfg.Web, web.Deps{
		Views:   views,
		Session: sessionCtl,
		Cameras: camerasCtl,
		Stats:   statsCtl,
		Theme:   themeCtl,
		Alerts:  alerts,
		Busy:    busy,
		Gateway: gw,
	}, log)

	svcMgr := service.NewManager(log)
	svcMgr.Register(sessionCtl)
	svcMgr.Register(webServer)

	if err := svcMgr.Start(ctx); err != nil {
		log.Error("Failed to start services", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info("Received shutdown signal", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := svcMgr.Shutdown(shutdownCtx); err != nil {
		log.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Shutdown complete")
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"nodechat/internal/snapshot"
	"nodechat/pkg/api"
	"nodechat/pkg/auth"
	"nodechat/pkg/chat"
	"nodechat/pkg/config"
	"nodechat/pkg/events"
	"nodechat/pkg/logger"
	"nodechat/pkg/store"
)

// build metadata - set via ldflags during build/release
var (
	version = "dev"
)

func main() {
	_ = godotenv.Load(".env")
	addrVal, dbVal, cfgVal, setFlags := config.ParseCommandFlags()

	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger.InitWithLevel(cfg.Logging.Level)

	// flags win over config/env
	addr := cfg.Addr()
	if setFlags["addr"] && addrVal != "" {
		addr = addrVal
	}
	dbPath := cfg.Storage.DBPath
	if setFlags["db"] && dbVal != "" {
		dbPath = dbVal
	}

	defaults, err := cfg.NodeDefaults()
	if err != nil {
		log.Fatalf("invalid node defaults: %v", err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open pebble at %s: %v", dbPath, err)
	}

	bus := events.NewBus(cfg.Events.QueueCapacity)
	reg := chat.NewRegistry(chat.Options{Bus: bus, DefaultSettings: defaults})

	if _, err := st.Hydrate(reg); err != nil {
		log.Fatalf("failed to hydrate registry: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// write-through persistence subscriber
	go st.Run(ctx, bus.Subscribe())

	stopSnap, err := snapshot.Start(ctx, cfg.Snapshot, reg, st)
	if err != nil {
		log.Fatalf("failed to start snapshot scheduler: %v", err)
	}

	sec := auth.SecConfig{
		RPS:   cfg.Security.RateLimit.RPS,
		Burst: cfg.Security.RateLimit.Burst,
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.New(reg, st, bus, sec, version),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listening", "addr", addr, "db", dbPath, "version", version)
		errCh <- srv.ListenAndServe()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Info("shutdown_signal", "signal", s.String())
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server_failed", "error", err)
		}
	}

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)

	stopSnap()
	// final sweep so the store reflects the last in-memory state
	snapshot.RunOnce(reg, st)
	bus.Close()
	cancel()
	if err := st.Close(); err != nil {
		logger.Error("store_close_failed", "error", err)
	}
	logger.Info("shutdown_complete")
}

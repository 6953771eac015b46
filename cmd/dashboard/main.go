package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/crowdcount/dashboard-server/internal/dashboard"
	"github.com/crowdcount/dashboard-server/internal/geometry"
	"github.com/crowdcount/dashboard-server/internal/logger"
	"github.com/crowdcount/dashboard-server/internal/storage"
)

func main() {
	// .env is optional; the environment and flags win over it.
	_ = godotenv.Load()

	cfg := dashboard.DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("Invalid environment: %v", err)
	}

	var logLevel string
	var logColor bool

	flag.StringVar(&cfg.Addr, "http", cfg.Addr, "HTTP server address")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	flag.StringVar(&cfg.Credential, "credential", cfg.Credential, "API bearer credential (empty disables auth)")
	flag.IntVar(&cfg.WalkerCount, "walkers", cfg.WalkerCount, "Synthetic walker count")
	flag.Int64Var(&cfg.WalkerSeed, "seed", cfg.WalkerSeed, "Synthetic walker seed")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error, silent)")
	flag.BoolVar(&logColor, "log-color", true, "Enable colored log output")
	flag.Parse()

	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger.Init(level, os.Stderr, logColor)

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("storage error: %v", err)
	}
	defer store.Close()

	source := dashboard.NewSyntheticSource(
		geometry.Size{Width: cfg.FrameWidth, Height: cfg.FrameHeight},
		cfg.WalkerCount,
		cfg.WalkerSeed,
	)

	server := dashboard.NewServer(cfg, store, source)
	server.Start()
	defer server.Stop()

	logger.Info("Main", "Dashboard backend listening on %s", cfg.Addr)
	logger.Info("Main", "Database: %s", cfg.DBPath)
	logger.Info("Main", "Log level: %s", level)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.Handler(),
	}

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/crowdcount/dashboard-server/internal/console"
	"github.com/crowdcount/dashboard-server/internal/logger"
)

func main() {
	_ = godotenv.Load()

	cfg := console.DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("Invalid environment: %v", err)
	}

	var logLevel string
	var logColor bool

	flag.StringVar(&cfg.Addr, "http", cfg.Addr, "HTTP server address")
	flag.StringVar(&cfg.BackendURL, "backend", cfg.BackendURL, "Dashboard backend base URL")
	flag.StringVar(&cfg.Credential, "credential", cfg.Credential, "Backend bearer credential")
	flag.IntVar(&cfg.CanvasWidth, "canvas-width", cfg.CanvasWidth, "Editor canvas width")
	flag.IntVar(&cfg.CanvasHeight, "canvas-height", cfg.CanvasHeight, "Editor canvas height")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error, silent)")
	flag.BoolVar(&logColor, "log-color", true, "Enable colored log output")
	flag.Parse()

	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger.Init(level, os.Stderr, logColor)

	c := console.New(cfg)
	c.Start(context.Background())
	defer c.Stop()

	logger.Info("Main", "Zone editor console listening on %s", cfg.Addr)
	logger.Info("Main", "Backend: %s", cfg.BackendURL)
	logger.Info("Main", "Log level: %s", level)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: c.Handler(),
	}

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

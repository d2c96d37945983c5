package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/indranet/internal/infrastructure/config"
	"github.com/GriffinCanCode/indranet/internal/infrastructure/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Flags override env vars
	flag.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "Server port")
	flag.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "Listen host")
	flag.StringVar(&cfg.LLM.Provider, "provider", cfg.LLM.Provider, "Model provider: anthropic, openai or ollama")
	flag.StringVar(&cfg.Storage.Backend, "storage", cfg.Storage.Backend, "Session storage: file, sqlite or memory")
	flag.StringVar(&cfg.Storage.Dir, "data", cfg.Storage.Dir, "Session data directory")
	flag.StringVar(&cfg.File, "config", cfg.File, "YAML or TOML overrides file")
	flag.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "Development logging")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

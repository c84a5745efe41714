package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/md80av8r/propilot-core/internal/app"
	"github.com/md80av8r/propilot-core/internal/config"
	"github.com/md80av8r/propilot-core/internal/logging"
)

// @title ProPilot Agent API
// @version 1.0
// @description Phone-side logbook agent: trip lifecycle, watch sync, per diem and legality reports.
// @host localhost:8080
// @BasePath /
func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	if err := logging.Init(cfg.Env); err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	logging.Info("ProPilot agent starting up",
		"environment", cfg.Env,
		"data_dir", cfg.Data.Dir,
		"timestamp", time.Now().Format(time.RFC3339),
	)

	agent, err := app.New(cfg)
	if err != nil {
		logging.Error("Agent assembly failed", "error", err.Error())
		log.Fatalf("❌ Failed to start agent: %v", err)
	}
	defer agent.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logging.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	if err := agent.Run(ctx); err != nil {
		log.Fatalf("❌ Agent exited with error: %v", err)
	}
	logging.Info("Agent stopped")
}

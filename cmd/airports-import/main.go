package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/md80av8r/propilot-core/internal/airports"
	"github.com/md80av8r/propilot-core/internal/config"
	"github.com/md80av8r/propilot-core/internal/db"
)

// Airport Directory Import
// Loads a community airports JSON dump into the agent's airport
// database. Run it once before first flight; lookups and night
// calculations come back empty-handed without it.
func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	file := flag.String("file", "airports.json", "path to the airports JSON dump")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}
	if err := os.MkdirAll(cfg.Data.Dir, 0755); err != nil {
		log.Fatalf("❌ Failed to create data directory: %v", err)
	}

	database, err := db.InitSQLite(filepath.Join(cfg.Data.Dir, "airports.db"))
	if err != nil {
		log.Fatalf("❌ Failed to open airport database: %v", err)
	}
	defer database.Close()

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("❌ Failed to open %s: %v", *file, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	loader := airports.NewLoaderService(airports.NewSQLDirectory(database))
	count, err := loader.LoadFromJSON(ctx, f)
	if err != nil {
		log.Fatalf("❌ Import failed: %v", err)
	}
	log.Printf("✅ Imported %d airports into %s", count, cfg.Data.Dir)
}

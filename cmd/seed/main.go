package main

import (
	"log"
	"os"

	"github.com/oggyb/ffm-club/internal/config"
	"github.com/oggyb/ffm-club/internal/db"
)

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Fatalf("failed to init db: %v", err)
	}

	if err := db.SeedTestData(database, cfg.Auth.BCryptCost); err != nil {
		log.Fatalf("failed to seed: %v", err)
	}

	log.Printf("Seeding completed. Every account signs in with %q.", db.DemoPassword)
}

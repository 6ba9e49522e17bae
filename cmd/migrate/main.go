package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Rrens/zara-ai/internal/config"
	"github.com/Rrens/zara-ai/internal/repository/postgres"
	"github.com/Rrens/zara-ai/internal/repository/sqlite"
	"github.com/joho/godotenv"
)

// Applies the session storage schema for the configured driver.
// Drivers without a schema have nothing to migrate.
func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	switch cfg.Storage.Driver {
	case config.StorageSQLite:
		fmt.Printf("Migrating sqlite database at %s...\n", cfg.Storage.SQLitePath)
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.SQLitePath), 0o755); err != nil {
			fail(err)
		}
		if err := sqlite.RunMigrations(cfg.Storage.SQLitePath); err != nil {
			fail(err)
		}

	case config.StoragePostgres:
		fmt.Printf("Migrating database at %s:%d...\n", cfg.Database.Host, cfg.Database.Port)
		if err := postgres.RunMigrations(cfg.Database.DSN()); err != nil {
			fail(err)
		}

	default:
		fmt.Printf("Storage driver %q has no schema, nothing to migrate\n", cfg.Storage.Driver)
		return
	}

	fmt.Println("Migrations applied")
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
	os.Exit(1)
}

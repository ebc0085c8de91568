// Package main is a repair tool for dirty migration state in the registration
// database. Dirty state occurs when the golang-migrate runner marks a version
// as in-progress but the process was interrupted before it completed. The tool
// reads the connection settings from the regular configuration, reports the
// current schema version and the embedded migrations still to apply, and
// clears the dirty flag so the next `server migrate up` can retry cleanly.
package main

import (
	"log"
	"os"

	"github.com/annotation-study/registration/internal/config"
	"github.com/annotation-study/registration/internal/db"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.Connect(cfg.Database.GetDSN(), 1, 0)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	log.Println("Connected to database successfully")

	// Check current migration state
	var version uint
	var dirty bool
	err = database.QueryRow("SELECT version, dirty FROM schema_migrations LIMIT 1").Scan(&version, &dirty)
	if err != nil {
		log.Fatalf("Failed to check migration state: %v", err)
	}

	log.Printf("Current migration state: version=%d, dirty=%v", version, dirty)

	if dirty {
		log.Println("Fixing dirty migration state...")
		if _, err := database.Exec("UPDATE schema_migrations SET dirty = false"); err != nil {
			log.Fatalf("Failed to fix dirty state: %v", err)
		}
		log.Println("Migration state fixed successfully")
	} else {
		log.Println("Migration state is already clean")
	}

	pending, err := db.PendingMigrations(version)
	if err != nil {
		log.Fatalf("Failed to read embedded migrations: %v", err)
	}
	if len(pending) > 0 {
		log.Printf("Migrations still to apply: %v (run `server migrate up`)", pending)
	}

	// Show final state
	version, dirty, err = db.GetMigrationVersion(database)
	if err != nil {
		log.Fatalf("Failed to check final migration state: %v", err)
	}

	log.Printf("Final migration state: version=%d, dirty=%v", version, dirty)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"storefront-support/config"
	"storefront-support/internal/repository"
	"storefront-support/pkg/database"

	"gorm.io/gorm"
)

const usage = `
Storefront Support - Database CLI Tool

Usage:
  migrate [command] [flags]

Commands:
  up          Create tables, indexes and constraints, then apply raw SQL files
  status      Show database connection status and row counts
  truncate    Truncate all tables (DANGEROUS)

Flags:
  -migrations string   Path to an optional raw SQL directory (default "migrations")

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go status
`

func main() {
	migrationsDir := flag.String("migrations", "migrations", "Path to raw SQL migrations directory")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer database.Close()

	switch command {
	case "up":
		runMigrationsUp(db, *migrationsDir)
	case "status":
		showStatus(db)
	case "truncate":
		runTruncate(db)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp(db *gorm.DB, migrationsDir string) {
	log.Println("Running migrations UP...")

	if err := repository.InitSchema(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	if err := database.ApplyRawMigrations(db, migrationsDir); err != nil {
		log.Fatalf("Raw migration failed: %v", err)
	}

	log.Println("Migrations completed successfully")
}

func showStatus(db *gorm.DB) {
	log.Println("Checking database status...")

	if err := database.HealthCheck(context.Background()); err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Database connection: OK")

	counts, err := repository.Counts(db)
	if err != nil {
		log.Printf("Could not count rows: %v", err)
		return
	}
	for table, n := range counts {
		log.Printf("Table %-15s %d rows", table, n)
	}
}

func runTruncate(db *gorm.DB) {
	log.Println("WARNING: This will TRUNCATE all tables!")

	if err := repository.Truncate(db); err != nil {
		log.Fatalf("Truncate failed: %v", err)
	}

	log.Println("All tables truncated")
}

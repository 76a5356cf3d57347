package main

import (
	"errors"
	"flag"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stallpass/api/internal/config"
	"github.com/stallpass/api/migrations"
)

func main() {
	down := flag.Int("down", 0, "Roll back this many migrations instead of migrating up")
	version := flag.Bool("version", false, "Print the current schema version and exit")
	flag.Parse()

	cfg := config.Load()

	m, err := migrations.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to prepare migrations: %v", err)
	}
	defer m.Close()

	switch {
	case *version:
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Println("No migrations applied")
			return
		}
		if err != nil {
			log.Fatalf("Read version: %v", err)
		}
		log.Printf("Schema version %d (dirty=%t)", v, dirty)
	case *down > 0:
		if err := m.Steps(-*down); err != nil {
			log.Fatalf("Roll back %d: %v", *down, err)
		}
		log.Printf("Rolled back %d migration(s)", *down)
	default:
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("Migrate up: %v", err)
		}
		log.Println("Schema is up to date")
	}
}

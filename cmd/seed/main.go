// main.go - Demo data seeding tool
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"

	"careerpulse/internal"
	"careerpulse/internal/seeder"
)

func main() {
	users := flag.Int("users", 50, "number of demo users to generate")
	days := flag.Int("days", 30, "spread sessions across this many days")
	flag.Parse()

	app, err := internal.NewApp()
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	if err := app.DBManager.MigrateDatabase(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	s := seeder.NewSeeder(app.DBManager, slog.Default(), *users, *days)
	if err := s.Seed(context.Background()); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seeding complete")
}

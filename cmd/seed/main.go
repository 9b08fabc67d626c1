// Command main runs the database seeder for Tribunal.
package main

import (
	"flag"
	"log"

	"tribunal/internal/config"
	"tribunal/internal/database"
	"tribunal/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	adminEmail := flag.String("admin-email", "admin@tribunal.local", "Admin account email")
	adminPassword := flag.String("admin-password", "change-me-please", "Admin account password")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Seed(db, seed.Options{
		NumUsers:    *numUsers,
		ShouldClean: *shouldClean,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	if _, err := seed.EnsureAdmin(db, *adminEmail, *adminPassword); err != nil {
		log.Fatalf("Admin creation failed: %v", err)
	}
}

package main

import (
	"context" // Context for the promotion query
	"flag"    // Command-line flags

	"peerpay/internal/config" // Custom import path (Config)
	"peerpay/internal/db"     // Custom import path (Database)

	"github.com/sirupsen/logrus" // Logging
)

// Main entry point for migration
func main() {
	admin := flag.String("admin", "", "identifier of an account to promote to admin after migrating")
	flag.Parse()

	cfg := config.LoadConfig() // Load configuration

	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err) // Log fatal error if connection fails
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("migration failed: %v", err) // Log fatal error if migration fails
	}
	if *admin != "" {
		if err := db.PromoteAdmin(context.Background(), gdb, *admin); err != nil {
			logrus.Fatalf("failed to promote %s: %v", *admin, err)
		}
	}
}

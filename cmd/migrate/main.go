package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/vencura/vencura/internal/storage"
)

func main() {
	_ = godotenv.Load()

	var (
		dsn       = flag.String("dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
		direction = flag.String("direction", storage.MigrateUp, "Migration direction: up or down")
		steps     = flag.Int("steps", 0, "Number of migrations to run (0 = all)")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx := context.Background()
	store, err := storage.New(ctx, *dsn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	ran, err := store.Migrate(ctx, *direction, *steps)
	for _, version := range ran {
		fmt.Printf("Applied migration: %s (%s)\n", version, *direction)
	}
	if err != nil {
		store.Close()
		log.Fatalf("Migration failed: %v", err)
	}

	if len(ran) == 0 {
		fmt.Println("No migrations to apply")
	} else {
		fmt.Printf("Applied %d migration(s)\n", len(ran))
	}
}

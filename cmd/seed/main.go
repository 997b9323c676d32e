package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/config"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/database"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/logger"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/repository"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/seed"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	command := "dev"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := logger.Initialize(cfg.LogLevel, ""); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := database.Initialize(ctx, cfg.MongoURI, cfg.MongoDB); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(context.Background())

	seeder := seed.NewSeeder(
		repository.NewUserRepository(),
		repository.NewPostRepository(),
		repository.NewConversationStore(),
		repository.NewMessageStore(),
	)

	switch command {
	case "dev":
		err = seeder.SeedDev(ctx)
	case "test":
		err = seeder.SeedTest(ctx)
	case "clean":
		err = seeder.Clean(ctx)
	default:
		fmt.Println("Usage: seed [dev|test|clean]")
		fmt.Println("  dev   - Seed development database with realistic data")
		fmt.Println("  test  - Seed test database with minimal data")
		fmt.Println("  clean - Remove all seed data (use with caution)")
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("Seed command %q failed: %v", command, err)
	}
	log.Printf("Seed command %q finished", command)
}

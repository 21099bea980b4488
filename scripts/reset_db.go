package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	fmt.Println("========================================")
	fmt.Println("   Reset Database for Testing")
	fmt.Println("========================================")
	fmt.Println()
	fmt.Println("⚠️  WARNING: This will DELETE ALL FARM DATA!")
	fmt.Println()
	fmt.Println("This will:")
	fmt.Println("  - Delete all batches and their history")
	fmt.Println("  - Delete all daily progress entries")
	fmt.Println("  - Delete all sensor readings")
	fmt.Println("  - Delete all users (setup reopens)")
	fmt.Println()
	fmt.Print("Type 'yes' to confirm: ")

	var confirm string
	fmt.Scanln(&confirm)

	if confirm != "yes" {
		fmt.Println("Reset cancelled.")
		return
	}

	// Load environment variables
	godotenv.Load()

	// Database connection
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbUser := getEnv("DB_USER", "postgres")
	dbPassword := getEnv("DB_PASSWORD", "postgres")
	dbName := getEnv("DB_NAME", "broiler_db")

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		dbUser, dbPassword, dbHost, dbPort, dbName)

	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer pool.Close()

	fmt.Println()
	fmt.Println("🔄 Resetting database...")

	ctx := context.Background()

	// The whole farm lives in one documents table, keyed by path prefix.
	prefixes := []string{
		"batch_daily",
		"batch_history",
		"batches",
		"sensor_data",
		"users",
	}

	for _, prefix := range prefixes {
		tag, err := pool.Exec(ctx, "DELETE FROM documents WHERE path LIKE $1", prefix+"/%")
		if err != nil {
			log.Fatalf("Failed to clear %s: %v\n", prefix, err)
		}
		fmt.Printf("  ✓ Cleared %s (%d documents)\n", prefix, tag.RowsAffected())
	}

	fmt.Println()
	fmt.Println("✅ Database reset successful!")
	fmt.Println()
	fmt.Println("First login will reopen the admin setup endpoint.")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

package main

import (
	"log"
	"os"
	"time"

	"storefront-api/internal/database"
	"storefront-api/internal/handlers"
	"storefront-api/internal/mailer"
	"storefront-api/internal/routes"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not load .env file. Relying on system environment variables.")
	}

	db, err := database.OpenDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	app := &handlers.Handlers{
		DB:     db,
		Mailer: mailer.NewFromEnv(),
	}

	// Background worker: hourly cleanup of expired refresh tokens and
	// abandoned guest carts.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		log.Println("Background worker started: maintenance runs hourly")
		for range ticker.C {
			app.RunMaintenance()
		}
	}()

	router := routes.SetupRouter(app)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Starting storefront API server on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

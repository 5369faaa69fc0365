package main

import (
	"log"

	"birdcam/internal/app"

	"github.com/joho/godotenv"
)

func main() {
	// Optional .env file; real environment variables take precedence.
	_ = godotenv.Load()

	application, err := app.New()
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

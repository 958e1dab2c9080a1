package main

import (
	"log"

	"github.com/MrSnakeDoc/bitscreen/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ bitscreen failed to start: %v", err)
	}
}

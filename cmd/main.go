package main

import (
	"log"

	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/app"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/app/config"
)

func main() {
	cfg := config.MustLoad()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	application.Run()
}

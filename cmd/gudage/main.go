package main

import (
	"log"

	_ "github.com/joho/godotenv/autoload"

	"github.com/vashistbar27/Gudage-hospital/cmd/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}

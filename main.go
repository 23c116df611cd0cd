package main

import (
	"github.com/joho/godotenv"

	"relayguard/cmd"
)

func main() {
	// Optional .env for local development; real deployments set env directly.
	_ = godotenv.Load()

	cmd.Execute()
}

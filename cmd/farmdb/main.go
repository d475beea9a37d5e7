// Command farmdb migrates the Kenya Farm IoT database and serves its health endpoint.
package main

import (
	"github.com/joho/godotenv"

	"github.com/kenyafarmiot/farmdb/internal/cli"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cli.Execute()
}

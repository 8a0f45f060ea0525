package main

import (
	"os"

	"github.com/wonny/topmover/backend/cmd/movers/commands"
)

// main is the entry point for the movers CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/movers [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/wonny/stockscan/cmd/stockscan/commands"
)

// main is the entry point for the stockscan CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/stockscan [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

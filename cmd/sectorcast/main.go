package main

import (
	"os"

	"github.com/wonny/sectorcast/cmd/sectorcast/commands"
)

// main is the entry point for the sectorcast CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/sectorcast [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

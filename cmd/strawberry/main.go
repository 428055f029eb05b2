package main

import (
	"os"

	"github.com/wonny/strawberry/cmd/strawberry/commands"
)

// main is the entry point for the strawberry CLI
// ⭐ go run ./cmd/strawberry [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

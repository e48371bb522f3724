package main

import (
	"os"

	"github.com/rsnash92/taxfolio/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/conduit-lang/dynarename/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

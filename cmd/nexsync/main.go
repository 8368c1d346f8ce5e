package main

import (
	"os"

	"github.com/nexpass/nexsync/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

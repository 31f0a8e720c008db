package main

import (
	"os"

	"github.com/dverbeek/agent-skills/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"hostlink/cmd/hostlinkd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

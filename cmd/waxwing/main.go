package main

import (
	"os"

	"waxwing/cmd/waxwing/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

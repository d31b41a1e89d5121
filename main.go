package main

import (
	"os"

	"github.com/quickspin-labs/assistant/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

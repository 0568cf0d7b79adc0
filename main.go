package main

import (
	"os"

	"github.com/anhnt/edge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

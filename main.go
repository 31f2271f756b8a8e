package main

import (
	"os"

	"github.com/username/fintrack/backend/src/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/rtzll/notebuddy/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/pitwall/vtms/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

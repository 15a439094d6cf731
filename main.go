package main

import (
	"os"

	"github.com/clarityhire/clarity/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

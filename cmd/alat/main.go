package main

import (
	"os"

	"github.com/alphalat/alphalat/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/voslin/gantry/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/hupe1980/meetmesh/internal/cli"
)

func main() {
	if err := cli.NewRootCmd(&cli.Dependencies{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

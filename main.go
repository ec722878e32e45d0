// Package main is the entry point for the syncsys CLI.
package main

import (
	"os"

	"github.com/syncsys/syncsys/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

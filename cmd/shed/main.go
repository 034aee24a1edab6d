// Package main is the entry point for the shed CLI tool.
package main

import (
	"os"

	"github.com/aidanlsb/shed/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// Package main provides the entry point for the engram CLI.
package main

import (
	"os"

	"github.com/engramhq/engram/cmd/engram/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}

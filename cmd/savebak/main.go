package main

import (
	"github.com/jmcdonald/savebak/internal/cli"
)

// version is set via ldflags at build time: -ldflags "-X main.version=x.y.z"
var version = "dev"

func main() {
	// No args, ui and tui all open the menu; the CLI routes them.
	c := cli.New(version)
	c.Run()
}

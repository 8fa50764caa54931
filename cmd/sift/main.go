// Command sift extracts web pages into classified sections, either as an
// HTTP service or one URL at a time.
package main

import (
	"os"

	"github.com/use-agent/sift/cmd/sift/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

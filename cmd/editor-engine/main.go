// Command editor-engine runs the content-publishing pipeline.
package main

import (
	"fmt"
	"os"

	"github.com/newsline-bot/editor-engine/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

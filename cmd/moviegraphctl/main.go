// Command moviegraphctl runs maintenance and diagnostic tasks against the
// movie graph.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

var version = "dev"

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "moviegraphctl",
		Version: version,
		Usage:   "Movie graph maintenance tool",
		Commands: []*cli.Command{
			schemaCommand(),
			recomputeCommand(),
			recommendCommand(),
			explainCommand(),
			tokenCommand(),
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

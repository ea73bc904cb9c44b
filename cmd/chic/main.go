// Command chic runs the chic terminal interface.
package main

import (
	"fmt"
	"os"

	"github.com/chicdev/chic/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "chic: %v\n", err)
		os.Exit(1)
	}
}

// Command forksync keeps forked repositories in step with their upstream.
package main

import (
	"os"

	"github.com/openfork/forksync/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

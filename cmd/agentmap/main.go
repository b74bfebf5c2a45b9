// Command agentmap is the CLI adapter over the runtime façade: it
// bootstraps the container from configuration and exposes the façade's
// operations as subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// A .env next to the invocation, when present, feeds the same
	// environment resolution the config package performs.
	_ = godotenv.Load()

	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, renderError(err))
		os.Exit(1)
	}
}

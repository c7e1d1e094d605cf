// Command taxoncore resolves NCBI taxonomy identifiers against the lineage
// and merged dumps and imports repository entries that reference them.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"taxoncore/internal/taxonomy"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "taxoncore:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps failures to process exit codes: 2 for configuration, 3 for
// unresolvable identifiers, 4 for corrupt dumps, 1 otherwise.
func exitCode(err error) int {
	var missing *taxonomy.MissingConfigurationError
	switch {
	case errors.As(err, &missing):
		return 2
	case taxonomy.IsInvalidTaxID(err):
		return 3
	case taxonomy.IsDataCorruption(err):
		return 4
	default:
		return 1
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		// An interrupted batch already reported its partial summary.
		if errors.Is(err, context.Canceled) {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

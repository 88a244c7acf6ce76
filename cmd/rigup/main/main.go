package main

import (
	"fmt"
	"os"

	"github.com/arthur-debert/rigup/cmd/rigup"
)

func main() {
	rootCmd := rigup.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

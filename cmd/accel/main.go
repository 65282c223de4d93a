// Package main provides the accel command: timing, comparison and weight
// tooling for nets that dispatch to the accelerated kernel library.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewCLI().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

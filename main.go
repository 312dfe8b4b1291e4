// Package main is the entry point for the pktforge packet builder.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/pktforge/cmd"
	"firestige.xyz/pktforge/internal/log"
)

func main() {
	err := cmd.Execute()
	_ = log.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

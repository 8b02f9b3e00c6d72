// Command cin7-sync pulls Cin7 sales, credit-note and purchase documents for
// every configured account and writes them out as flat CSV reports.
package main

import (
	"os"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// Command restquery compiles REST query options into document store queries
// and optionally runs them.
//
// Usage:
//
//	restquery compile --options query.yaml [--id <objectid>]
//	restquery run --store mongodb --collection roles --options query.json
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// pricectl manages the background price cache: settings, fetches, refreshes
// and exports.
//
// Usage:
//
//	pricectl save-settings --api-key <uuid> --currency EUR
//	pricectl refresh
//	pricectl get-price "AK-47 | Redline (Field-Tested)"
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

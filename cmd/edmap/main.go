// Command edmap resolves a station table against the EDSM system catalog
// and writes a marker document for the edastro galaxy-map viewer.
package main

import (
	"fmt"
	"os"
)

// Version is populated at build time.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "edmap: %v\n", err)
		os.Exit(1)
	}
}

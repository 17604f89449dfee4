// Command periods answers period and invoice-number questions from the
// command line, reading profiles from YAML or JSON files.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

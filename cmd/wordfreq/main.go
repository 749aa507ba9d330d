// wordfreq counts and ranks word frequencies in a library of texts, either
// as an HTTP service or one document at a time from the command line.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

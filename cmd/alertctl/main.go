// Command alertctl is the operator CLI for the alert pipeline. It classifies
// and dispatches single events from a file or stdin using the same factory,
// channels and dispatcher as the Lambda function.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

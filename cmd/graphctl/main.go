// Command graphctl runs the reactive graph runtime with the reference
// plugins installed. It lists behaviours, builds a demo graph, and exports
// snapshots to the configured blob store.
package main

import (
	"fmt"
	"os"
)

var exitFunc = os.Exit

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "graphctl:", err)
		exitFunc(1)
	}
}

// Command queuectl inspects and maintains the document queue directly
// through the configured store, without going through the HTTP API.
package main

import (
	"os"
)

func main() {
	c := newCLI(os.Stdout)
	err := newRootCmd(c).Execute()
	_ = c.close()
	if err != nil {
		os.Exit(1)
	}
}

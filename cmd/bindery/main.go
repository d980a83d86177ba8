// Command bindery organizes raw notes into navigable, searchable books.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/bindery-cli/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/marmos91/afpfs/cmd/afpcli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "afpcli: %v\n", err)
		os.Exit(1)
	}
}

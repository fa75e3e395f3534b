package main

import (
	"fmt"
	"os"

	"github.com/nishantd01/smart-backoffice/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

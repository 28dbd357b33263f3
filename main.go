package main

import (
	"os"

	"github.com/daiverp/daiverp/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

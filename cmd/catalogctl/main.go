package main

import (
	"os"

	"github.com/kailas-cloud/catalogq/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/cuongbtq/employee-ingest/internal/cli"
)

func main() {
	if err := cli.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

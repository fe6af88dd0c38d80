package main

import (
	"os"

	"github.com/username/momoflow/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

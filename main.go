package main

import (
	"os"

	"github.com/rogersnm/todos/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"
)

func main() {
	cmd := newRootCmd(&App{})
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/grxam/Joules-per-Bit/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

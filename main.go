package main

import (
	"os"

	"github.com/tanpawarit/transcript-notes/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

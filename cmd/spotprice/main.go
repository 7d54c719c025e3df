package main

import (
	"os"
)

var Version = "?.?.?"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

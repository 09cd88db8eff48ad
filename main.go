package main

import (
	"os"

	"github.com/overdrive-recruitment/recruit-pilot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

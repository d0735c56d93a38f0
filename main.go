package main

import (
	"os"

	"github.com/pantechsoftware2/Scholarship-Finder/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

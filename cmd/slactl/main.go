package main

import (
	"os"
	_ "time/tzdata"

	"sla-tracker/cmd/slactl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

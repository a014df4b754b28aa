// Package main is the entry point for the wb-seller-tracker service.
package main

import (
	"os"

	"github.com/donaldgifford/wb-seller-tracker/cmd/wb-seller-tracker/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

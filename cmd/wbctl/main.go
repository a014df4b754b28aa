// Package main is the entry point for the wbctl CLI client.
package main

import (
	"github.com/donaldgifford/wb-seller-tracker/cmd/wbctl/cmd"
)

func main() {
	cmd.Execute()
}

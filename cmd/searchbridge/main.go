// Package main provides the entry point for the searchbridge CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/searchbridge/cmd/searchbridge/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}

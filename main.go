// Package main is the entry point for the pricebatch application
package main

import (
	"github.com/yachaerang/pricebatch/cmd"
)

func main() {
	cmd.Execute()
}

// Package main is the entry point for magicpacket.
package main

import (
	"os"
)

func main() {
	os.Exit(exitCode(Execute()))
}

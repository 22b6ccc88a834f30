package main

import (
	"github.com/xkilldash9x/handbridge/cmd"
)

// main is the entry point for the handbridge CLI.
func main() {
	cmd.Execute()
}

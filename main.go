// Package main is the entry point for the stagecheck CLI.
package main

import "stagecheck.dev/pkg/stagecheck/cmd"

func main() {
	cmd.Execute()
}

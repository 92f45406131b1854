package main

import (
	"github.com/samvit-hq/guardrail/cmd/cli"
)

// main is the entry point for the guardrail-admin command-line tool.
// It delegates all execution to the Execute function provided by the cli package.
func main() {
	cli.Execute()
}

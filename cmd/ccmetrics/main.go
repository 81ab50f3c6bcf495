// Package main is the entry point for claude-code-metrics. It runs as an AWS
// Lambda function, a local OTLP/HTTP endpoint or a one-shot translator.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

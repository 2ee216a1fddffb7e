// Package main is the single-binary entrypoint for BitNet.
// One binary: model management, CPU inference, and the HTTP API.
package main

import "github.com/bitnetlabs/bitnet/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}

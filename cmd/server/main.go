// Package main is the entry point for the account service.
package main

import (
	"fmt"
	"os"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
)

// @title Account Service API
// @version 1.0
// @description Account registration, cookie sessions and password reset.
// @host localhost:4000
// @BasePath /api
// @schemes http
func main() {
	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

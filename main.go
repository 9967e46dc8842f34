package main

import (
	"fmt"
	"os"

	_ "golang.org/x/crypto/x509roots/fallback"

	"github.com/temirov/reviewsync/cmd/cli"
)

const (
	exitErrorTemplateConstant = "%v\n"
)

// main executes the reviewsync command-line application.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
		os.Exit(1)
	}
}

package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
)

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// ExitOnError exits when err is non-nil. A -h request exits with code 0 since
// the flag package already printed usage; any other error goes through Exitf.
func ExitOnError(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	Exitf("Error: %v", err)
}

package config_test

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/louisbranch/simlab/internal/platform/config"
)

// Exit paths run in a subprocess because os.Exit cannot be intercepted.
func TestExitOnError(t *testing.T) {
	switch os.Getenv("TEST_EXIT_SUBPROCESS") {
	case "error":
		config.ExitOnError(fmt.Errorf("run: %w", errors.New("something broke")))
		return
	case "help":
		config.ExitOnError(flag.ErrHelp)
		return
	case "nil":
		config.ExitOnError(nil)
		os.Exit(3)
	}

	tcs := []struct {
		mode     string
		wantCode int
		wantOut  string
	}{
		{mode: "error", wantCode: 1, wantOut: "Error: run: something broke"},
		{mode: "help", wantCode: 0},
		{mode: "nil", wantCode: 3},
	}
	for _, tc := range tcs {
		cmd := exec.Command(os.Args[0], "-test.run=^TestExitOnError$")
		cmd.Env = append(os.Environ(), "TEST_EXIT_SUBPROCESS="+tc.mode)
		out, err := cmd.CombinedOutput()

		code := 0
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else if err != nil {
			t.Fatalf("%s: run subprocess: %v", tc.mode, err)
		}
		if code != tc.wantCode {
			t.Fatalf("%s: exit code = %d, want %d", tc.mode, code, tc.wantCode)
		}
		if !strings.Contains(string(out), tc.wantOut) {
			t.Fatalf("%s: output = %q, want %q", tc.mode, out, tc.wantOut)
		}
	}
}

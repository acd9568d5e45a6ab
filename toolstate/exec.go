package toolstate

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// RunFunc executes a command in dir and returns its combined output. The
// build and version-probe steps take one so tests can substitute a stub.
type RunFunc func(ctx context.Context, dir string, name string, args ...string) ([]byte, error)

// ExecRun is the production RunFunc, running commands through os/exec with
// the pipeline bin directory prepended to PATH.
func ExecRun(binDir string) RunFunc {
	return func(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
		cmd := exec.CommandContext(ctx, name, args...)
		cmd.Dir = dir
		if binDir != "" {
			cmd.Env = append(os.Environ(), "PATH="+binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
		}

		out, err := cmd.CombinedOutput()
		if err != nil {
			return out, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
		}
		return out, nil
	}
}

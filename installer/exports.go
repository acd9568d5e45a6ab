package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ruteri/toolstate-pipeline/interfaces"
)

// RequiredExports returns the shell export statements needed to run the
// installed toolchain from the given prefix.
func RequiredExports(platform interfaces.Platform, prefix string) []string {
	exports := []string{
		fmt.Sprintf("export PATH=%s/bin:${CARGO_HOME:-~/.cargo}/bin:$PATH", prefix),
	}

	ldPathKey := "LD_LIBRARY_PATH"
	if platform == interfaces.PlatformDarwin {
		ldPathKey = "DYLD_LIBRARY_PATH"
	}
	// Skip the library-path export when the Rust sysroot is already on it,
	// so repeated installs don't stack duplicate entries.
	if !strings.Contains(os.Getenv(ldPathKey), rustSysrootPrefix) {
		exports = append(exports,
			fmt.Sprintf("export %[1]s=$(rustc --print sysroot)/lib:%[1]s", ldPathKey))
	}

	return exports
}

// ModifyPath appends the required exports to the user's shell profile.
// The current shell is assumed to be the user's preferred one so other
// shells' profiles stay untouched.
func ModifyPath(platform interfaces.Platform, prefix string) error {
	rcfile := profileFile(os.Getenv("SHELL"))

	f, err := os.OpenFile(rcfile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", rcfile, err)
	}
	defer f.Close()

	_, err = f.WriteString("\n" + strings.Join(RequiredExports(platform, prefix), "\n") + "\n")
	return err
}

func profileFile(shell string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	switch {
	case strings.Contains(shell, "zsh"):
		zdotdir := os.Getenv("ZDOTDIR")
		if zdotdir == "" {
			zdotdir = home
		}
		return filepath.Join(zdotdir, ".zprofile")
	case strings.Contains(shell, "bash"):
		return filepath.Join(home, ".bash_profile")
	default:
		return filepath.Join(home, ".profile")
	}
}

package toolstate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ToolBuild pairs a tool with the revision to build.
type ToolBuild struct {
	Tool    Tool
	Version string
}

// Builder checks out tool sources and builds their binaries into a shared
// bin directory.
type Builder struct {
	workDir string
	binDir  string
	run     RunFunc
	log     *slog.Logger
}

// NewBuilder creates a builder with its checkouts under workDir and built
// binaries collected into binDir.
func NewBuilder(workDir, binDir string, run RunFunc, log *slog.Logger) *Builder {
	return &Builder{workDir: workDir, binDir: binDir, run: run, log: log}
}

// Build builds every requested tool at its revision. The bin directory is
// recreated from scratch so stale binaries from earlier rounds cannot leak
// into the upload set.
func (b *Builder) Build(ctx context.Context, builds []ToolBuild) error {
	if err := os.RemoveAll(b.binDir); err != nil {
		return fmt.Errorf("failed to clean bin dir: %w", err)
	}
	if err := os.MkdirAll(b.binDir, 0755); err != nil {
		return fmt.Errorf("failed to create bin dir: %w", err)
	}

	for _, build := range builds {
		if err := b.buildOne(ctx, build); err != nil {
			return fmt.Errorf("building %s@%s: %w", build.Tool.Name, build.Version, err)
		}
	}
	return nil
}

func (b *Builder) buildOne(ctx context.Context, build ToolBuild) error {
	tool := build.Tool
	repoDir := filepath.Join(b.workDir, filepath.Base(tool.Source))

	b.log.Info("Building tool",
		slog.String("tool", tool.Name),
		slog.String("version", build.Version))

	if _, err := os.Stat(repoDir); os.IsNotExist(err) {
		if _, err := b.run(ctx, b.workDir, "git", "clone", "-q", tool.Source, repoDir); err != nil {
			return err
		}
	}
	if _, err := b.run(ctx, repoDir, "git", "fetch", "origin"); err != nil {
		return err
	}
	if _, err := b.run(ctx, repoDir, "git", "checkout", "-q", build.Version); err != nil {
		return err
	}

	var builtPath string
	switch {
	case tool.Builder != "":
		if _, err := b.run(ctx, repoDir, "sh", "-c", tool.Builder); err != nil {
			return err
		}
		builtPath = filepath.Join(repoDir, tool.Name)
	case fileExists(filepath.Join(repoDir, "Cargo.toml")):
		if _, err := b.run(ctx, repoDir, "cargo", "build", "-q", "--locked", "--release", "--bin", tool.Name); err != nil {
			return err
		}
		builtPath = filepath.Join(repoDir, "target", "release", tool.Name)
	case fileExists(filepath.Join(repoDir, "go.mod")):
		return fmt.Errorf("auto go builds are not supported, specify a builder for %s", tool.Name)
	default:
		return fmt.Errorf("unable to auto-detect project type for %s", tool.Name)
	}

	return copyExecutable(builtPath, filepath.Join(b.binDir, tool.Name))
}

// Binaries returns the names of the binaries currently in the bin directory.
func (b *Builder) Binaries() ([]string, error) {
	entries, err := os.ReadDir(b.binDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read bin dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// BinaryPath returns the path of a built binary.
func (b *Builder) BinaryPath(name string) string {
	return filepath.Join(b.binDir, name)
}

func copyExecutable(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open built binary: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0755)
	if err != nil {
		return fmt.Errorf("failed to create binary: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy binary: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

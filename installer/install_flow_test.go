package installer

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ruteri/toolstate-pipeline/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCLI is a shell script standing in for the downloaded toolchain CLI.
const stubCLI = "#!/bin/sh\nexit 0\n"

func TestInstallFlow(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub CLI is a shell script")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/" + interfaces.ManifestObject:
			io.WriteString(w, "2020-03-15T03:00:00Z linux oasis-abc1234 oasis-chain-def5678\n")
		case "/linux/current/oasis-abc1234":
			io.WriteString(w, stubCLI)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	prefix := t.TempDir()
	configDir := t.TempDir()

	ins := &Installer{
		opts: Options{
			ToolsURL:  server.URL,
			Toolchain: "latest",
			Prefix:    prefix,
			ConfigDir: configDir,
			Speedrun:  true,
			NoRust:    true,
			NoNode:    true,
		},
		platform: interfaces.PlatformLinux,
		client:   server.Client(),
		runShell: func(ctx context.Context, script string) error {
			t.Errorf("unexpected shell command with bootstrap disabled: %s", script)
			return nil
		},
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	require.NoError(t, ins.Install(context.Background()))

	cliPath := filepath.Join(prefix, "bin", "oasis")
	info, err := os.Stat(cliPath)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0111, "installed CLI must be executable")

	record, err := os.ReadFile(filepath.Join(configDir, installedDepsFile))
	require.NoError(t, err)
	assert.Equal(t, "oasis\n", string(record))

	// A second install without force refuses to clobber.
	err = ins.Install(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	// With force it reinstalls and the record stays deduplicated.
	ins.opts.Force = true
	require.NoError(t, ins.Install(context.Background()))

	record, err = os.ReadFile(filepath.Join(configDir, installedDepsFile))
	require.NoError(t, err)
	assert.Equal(t, "oasis\n", string(record))
}

func TestInstallBootstrapsRustAndNode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub CLI is a shell script")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/" + interfaces.ManifestObject:
			io.WriteString(w, "2020-03-15T03:00:00Z linux oasis-abc1234 oasis-chain-def5678\n")
		case "/linux/current/oasis-abc1234":
			io.WriteString(w, stubCLI)
		case "/node-dist/":
			io.WriteString(w, `<a href="node-v12.10.0.tar.gz">node-v12.10.0.tar.gz</a>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	prefix := t.TempDir()
	configDir := t.TempDir()

	var scripts []string
	ins := &Installer{
		opts: Options{
			ToolsURL:  server.URL,
			Toolchain: "latest",
			Prefix:    prefix,
			ConfigDir: configDir,
			Force:     true, // bypass the rust/node presence checks
		},
		platform: interfaces.PlatformLinux,
		client:   server.Client(),
		runShell: func(ctx context.Context, script string) error {
			scripts = append(scripts, script)
			return nil
		},
		nodeIndex: server.URL + "/node-dist/",
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	require.NoError(t, ins.Install(context.Background()))

	record, err := os.ReadFile(filepath.Join(configDir, installedDepsFile))
	require.NoError(t, err)
	assert.Equal(t, "rust\nnode-v12.10.0\noasis\n", string(record))

	require.Len(t, scripts, 3)
	assert.Contains(t, scripts[0], "sh.rustup.rs")
	assert.Contains(t, scripts[0], "--default-toolchain "+rustVersion)
	assert.NotContains(t, scripts[0], "--no-modify-path")
	assert.Contains(t, scripts[1], "node-v12.10.0-linux-x64.tar.gz")
	assert.Contains(t, scripts[2], "rsync -au")
	assert.Contains(t, scripts[2], prefix)
}

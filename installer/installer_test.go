package installer

import (
	"strings"
	"testing"

	"github.com/ruteri/toolstate-pipeline/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `2020-03-08T03:00:00Z linux oasis-1111111 oasis-chain-2222222
2020-03-08T06:00:00Z darwin oasis-3333333 oasis-chain-4444444
2020-03-15T03:00:00Z linux oasis-abc1234 oasis-chain-def5678
`

func TestLatestCLIKey(t *testing.T) {
	t.Run("newest line wins", func(t *testing.T) {
		key, err := LatestCLIKey(testManifest, interfaces.PlatformLinux)
		require.NoError(t, err)
		assert.Equal(t, "oasis-abc1234", key)
	})

	t.Run("platform filtered", func(t *testing.T) {
		key, err := LatestCLIKey(testManifest, interfaces.PlatformDarwin)
		require.NoError(t, err)
		assert.Equal(t, "oasis-3333333", key)
	})

	t.Run("cli distinguished from other tools", func(t *testing.T) {
		// oasis-chain-... must not match the oasis CLI pattern.
		key, err := LatestCLIKey("2020-03-15T03:00:00Z linux oasis-chain-def5678 oasis-abc1234", interfaces.PlatformLinux)
		require.NoError(t, err)
		assert.Equal(t, "oasis-abc1234", key)
	})

	t.Run("empty manifest", func(t *testing.T) {
		_, err := LatestCLIKey("", interfaces.PlatformLinux)
		assert.Error(t, err)
	})

	t.Run("no build for platform", func(t *testing.T) {
		_, err := LatestCLIKey("2020-03-15T03:00:00Z linux oasis-abc1234", interfaces.PlatformDarwin)
		assert.Error(t, err)
	})

	t.Run("no cli key in line", func(t *testing.T) {
		_, err := LatestCLIKey("2020-03-15T03:00:00Z linux oasis-chain-def5678", interfaces.PlatformLinux)
		assert.Error(t, err)
	})
}

func TestRequiredExports(t *testing.T) {
	t.Setenv("LD_LIBRARY_PATH", "")
	t.Setenv("DYLD_LIBRARY_PATH", "")

	linux := RequiredExports(interfaces.PlatformLinux, "/home/dev/.local")
	require.Len(t, linux, 2)
	assert.Contains(t, linux[0], "/home/dev/.local/bin")
	assert.Contains(t, linux[1], "LD_LIBRARY_PATH")
	assert.NotContains(t, linux[1], "DYLD")

	darwin := RequiredExports(interfaces.PlatformDarwin, "/Users/dev/.local")
	require.Len(t, darwin, 2)
	assert.Contains(t, darwin[1], "DYLD_LIBRARY_PATH")

	t.Run("sysroot already on library path", func(t *testing.T) {
		t.Setenv("LD_LIBRARY_PATH", "/home/dev/"+rustSysrootPrefix+"unknown-linux-gnu/lib")
		exports := RequiredExports(interfaces.PlatformLinux, "/home/dev/.local")
		require.Len(t, exports, 1)
		assert.Contains(t, exports[0], "PATH=")
	})
}

func TestProfileFile(t *testing.T) {
	assert.True(t, strings.HasSuffix(profileFile("/bin/zsh"), ".zprofile"))
	assert.True(t, strings.HasSuffix(profileFile("/bin/bash"), ".bash_profile"))
	assert.True(t, strings.HasSuffix(profileFile("/bin/fish"), ".profile"))
}

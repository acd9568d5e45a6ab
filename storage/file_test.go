package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/ruteri/toolstate-pipeline/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFileBackend(t *testing.T) *FileBackend {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend, err := NewFileBackend(t.TempDir(), logger)
	require.NoError(t, err)
	return backend
}

func TestFileBackendStoreFetch(t *testing.T) {
	backend := testFileBackend(t)
	ctx := context.Background()

	key := interfaces.ArtifactKey{
		Platform: interfaces.PlatformLinux,
		Channel:  interfaces.ChannelCurrent,
		Name:     "oasis",
		Version:  "abc1234",
	}

	require.NoError(t, backend.Store(ctx, key, []byte("binary contents")))

	data, err := backend.Fetch(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("binary contents"), data)
}

func TestFileBackendFetchNotFound(t *testing.T) {
	backend := testFileBackend(t)

	_, err := backend.Fetch(context.Background(), interfaces.ArtifactKey{
		Platform: interfaces.PlatformLinux,
		Channel:  interfaces.ChannelCurrent,
		Name:     "missing",
		Version:  "abc1234",
	})
	assert.ErrorIs(t, err, interfaces.ErrArtifactNotFound)
}

func TestFileBackendList(t *testing.T) {
	backend := testFileBackend(t)
	ctx := context.Background()

	keys := []interfaces.ArtifactKey{
		{Platform: interfaces.PlatformLinux, Channel: interfaces.ChannelCurrent, Name: "oasis-chain", Version: "def5678"},
		{Platform: interfaces.PlatformLinux, Channel: interfaces.ChannelCurrent, Name: "oasis", Version: "abc1234"},
		{Platform: interfaces.PlatformDarwin, Channel: interfaces.ChannelCurrent, Name: "oasis", Version: "abc1234"},
	}
	for _, key := range keys {
		require.NoError(t, backend.Store(ctx, key, []byte(key.Name)))
	}

	listed, err := backend.List(ctx, interfaces.PlatformLinux, interfaces.ChannelCurrent)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	// Sorted by object key.
	assert.Equal(t, "oasis", listed[0].Name)
	assert.Equal(t, "oasis-chain", listed[1].Name)

	// Empty channel lists empty without error.
	listed, err = backend.List(ctx, interfaces.PlatformDarwin, interfaces.ChannelCache)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestFileBackendCopyLeavesSource(t *testing.T) {
	backend := testFileBackend(t)
	ctx := context.Background()

	src := interfaces.ArtifactKey{
		Platform: interfaces.PlatformLinux,
		Channel:  interfaces.ChannelCurrent,
		Name:     "oasis",
		Version:  "abc1234",
	}
	dst := src.WithChannel(interfaces.ReleaseChannel("20.11"))

	require.NoError(t, backend.Store(ctx, src, []byte("payload")))
	require.NoError(t, backend.Copy(ctx, src, dst))

	srcData, err := backend.Fetch(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), srcData)

	dstData, err := backend.Fetch(ctx, dst)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), dstData)
}

func TestFileBackendDelete(t *testing.T) {
	backend := testFileBackend(t)
	ctx := context.Background()

	key := interfaces.ArtifactKey{
		Platform: interfaces.PlatformLinux,
		Channel:  interfaces.ChannelCache,
		Name:     "oasis",
		Version:  "abc1234",
	}
	require.NoError(t, backend.Store(ctx, key, []byte("x")))
	require.NoError(t, backend.Delete(ctx, []interfaces.ArtifactKey{key}))

	_, err := backend.Fetch(ctx, key)
	assert.ErrorIs(t, err, interfaces.ErrArtifactNotFound)

	// Deleting missing keys is not an error.
	assert.NoError(t, backend.Delete(ctx, []interfaces.ArtifactKey{key}))
}

func TestFileBackendManifest(t *testing.T) {
	backend := testFileBackend(t)
	ctx := context.Background()

	manifest, err := backend.FetchManifest(ctx)
	require.NoError(t, err)
	assert.Empty(t, manifest)

	require.NoError(t, backend.AppendManifest(ctx, "2020-03-15 linux oasis-abc1234"))
	require.NoError(t, backend.AppendManifest(ctx, "2020-03-15 darwin oasis-abc1234\n"))

	manifest, err = backend.FetchManifest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2020-03-15 linux oasis-abc1234\n2020-03-15 darwin oasis-abc1234\n", manifest)
}

func TestFileBackendAvailable(t *testing.T) {
	backend := testFileBackend(t)
	assert.True(t, backend.Available(context.Background()))
}

package storage

import (
	"io"
	"log/slog"
	"testing"

	"github.com/ruteri/toolstate-pipeline/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryStoreFor(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	factory := NewFactory(logger)

	t.Run("file store", func(t *testing.T) {
		store, err := factory.StoreFor("file://"+t.TempDir(), interfaces.Credentials{})
		require.NoError(t, err)
		assert.IsType(t, &FileBackend{}, store)
	})

	t.Run("s3 store", func(t *testing.T) {
		store, err := factory.StoreFor("s3://tools.example.dev/?region=us-east-1", interfaces.Credentials{})
		require.NoError(t, err)
		assert.IsType(t, &S3Backend{}, store)
		assert.Equal(t, "s3-tools.example.dev", store.Name())
	})

	t.Run("s3 store with credentials", func(t *testing.T) {
		creds := interfaces.Credentials{AccessKeyID: "a", SecretAccessKey: "b", SessionToken: "c"}
		store, err := factory.StoreFor("s3://tools.example.dev/?region=us-east-1", creds)
		require.NoError(t, err)
		assert.True(t, store.(*S3Backend).hasWriteAccess)
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		_, err := factory.StoreFor("ftp://example.com/", interfaces.Credentials{})
		assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
	})

	t.Run("missing bucket", func(t *testing.T) {
		_, err := factory.StoreFor("s3:///?region=us-east-1", interfaces.Credentials{})
		assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
	})
}

package release

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ruteri/toolstate-pipeline/interfaces"
	"github.com/ruteri/toolstate-pipeline/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabel(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want string
	}{
		{
			name: "mid-march 2020",
			date: time.Date(2020, 3, 15, 12, 0, 0, 0, time.UTC),
			want: "20.11",
		},
		{
			name: "first iso week",
			date: time.Date(2019, 1, 7, 0, 0, 0, 0, time.UTC),
			want: "19.02",
		},
		{
			name: "early january belongs to previous iso year",
			date: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
			want: "20.53",
		},
		{
			name: "week 53",
			date: time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC),
			want: "20.53",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Label(tt.date))
		})
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "exact phrase", input: "Do it!\n", want: true},
		{name: "wrong phrase", input: "do it!\n", want: false},
		{name: "empty line", input: "\n", want: false},
		{name: "eof", input: "", want: false},
		{name: "trailing text", input: "Do it! please\n", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got := Confirm(strings.NewReader(tt.input), &out)
			assert.Equal(t, tt.want, got)
			if !tt.want {
				assert.Contains(t, out.String(), DeclinedMessage)
			} else {
				assert.NotContains(t, out.String(), DeclinedMessage)
			}
		})
	}
}

func seedStore(t *testing.T) interfaces.ArtifactStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := storage.NewFileBackend(t.TempDir(), logger)
	require.NoError(t, err)

	ctx := context.Background()
	for _, platform := range interfaces.Platforms {
		for _, name := range []string{"oasis", "oasis-chain"} {
			key := interfaces.ArtifactKey{
				Platform: platform,
				Channel:  interfaces.ChannelCurrent,
				Name:     name,
				Version:  "abc1234",
			}
			require.NoError(t, store.Store(ctx, key, []byte(name+" on "+string(platform))))
		}
	}
	return store
}

func TestPromote(t *testing.T) {
	store := seedStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	promoter := NewPromoter(store, logger)
	require.NoError(t, promoter.Promote(ctx, "20.11", false))

	for _, platform := range interfaces.Platforms {
		released, err := store.List(ctx, platform, interfaces.ReleaseChannel("20.11"))
		require.NoError(t, err)
		assert.Len(t, released, 2)

		// Copy, not move: current is untouched.
		current, err := store.List(ctx, platform, interfaces.ChannelCurrent)
		require.NoError(t, err)
		assert.Len(t, current, 2)
	}

	// Contents carried over byte for byte.
	data, err := store.Fetch(ctx, interfaces.ArtifactKey{
		Platform: interfaces.PlatformLinux,
		Channel:  interfaces.ReleaseChannel("20.11"),
		Name:     "oasis",
		Version:  "abc1234",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("oasis on linux"), data)
}

func TestPromoteEmptyCurrent(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := storage.NewFileBackend(t.TempDir(), logger)
	require.NoError(t, err)

	promoter := NewPromoter(store, logger)
	err = promoter.Promote(context.Background(), "20.11", false)
	assert.ErrorIs(t, err, ErrNothingToPromote)
}

func TestPromoteReleaseImmutable(t *testing.T) {
	store := seedStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	promoter := NewPromoter(store, logger)
	require.NoError(t, promoter.Promote(ctx, "20.11", false))

	err := promoter.Promote(ctx, "20.11", false)
	assert.ErrorIs(t, err, ErrReleaseExists)

	// Reruns converge with force: same bytes, same keys.
	require.NoError(t, promoter.Promote(ctx, "20.11", true))
}

func TestPromotePartialCurrentRejected(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := storage.NewFileBackend(t.TempDir(), logger)
	require.NoError(t, err)

	// Only linux has published artifacts.
	ctx := context.Background()
	key := interfaces.ArtifactKey{
		Platform: interfaces.PlatformLinux,
		Channel:  interfaces.ChannelCurrent,
		Name:     "oasis",
		Version:  "abc1234",
	}
	require.NoError(t, store.Store(ctx, key, []byte("x")))

	promoter := NewPromoter(store, logger)
	err = promoter.Promote(ctx, "20.11", false)
	require.ErrorIs(t, err, ErrNothingToPromote)

	// Nothing was copied for any platform.
	released, err := store.List(ctx, interfaces.PlatformLinux, interfaces.ReleaseChannel("20.11"))
	require.NoError(t, err)
	assert.Empty(t, released)
}

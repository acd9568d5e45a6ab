package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ruteri/toolstate-pipeline/interfaces"
	"github.com/ruteri/toolstate-pipeline/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) (*Server, interfaces.ArtifactStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := storage.NewFileBackend(t.TempDir(), logger)
	require.NoError(t, err)

	srv, err := New(&HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		MetricsAddr:              "",
		Log:                      logger,
		DrainDuration:            10 * time.Millisecond,
		GracefulShutdownDuration: time.Second,
		ReadTimeout:              time.Second,
		WriteTimeout:             time.Second,
	}, NewHandler(store, logger))
	require.NoError(t, err)

	return srv, store
}

func TestHandleManifest(t *testing.T) {
	srv, store := testServer(t)
	require.NoError(t, store.AppendManifest(context.Background(), "2020-03-15T03:00:00Z linux oasis-abc1234"))

	rec := httptest.NewRecorder()
	srv.getRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/successful_builds", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2020-03-15T03:00:00Z linux oasis-abc1234\n", rec.Body.String())
}

func TestHandleToolListing(t *testing.T) {
	srv, store := testServer(t)
	ctx := context.Background()

	key := interfaces.ArtifactKey{
		Platform: interfaces.PlatformLinux,
		Channel:  interfaces.ChannelCurrent,
		Name:     "oasis",
		Version:  "abc1234",
	}
	require.NoError(t, store.Store(ctx, key, []byte("binary")))

	rec := httptest.NewRecorder()
	srv.getRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tools/linux/current", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var tools []ToolInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tools))
	require.Len(t, tools, 1)
	assert.Equal(t, ToolInfo{Name: "oasis", Version: "abc1234", Key: "linux/current/oasis-abc1234"}, tools[0])
}

func TestHandleToolListingBadPlatform(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.getRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tools/windows/current", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDrainUndrain(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.getRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/drain", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/undrain", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLivez(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.getRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}

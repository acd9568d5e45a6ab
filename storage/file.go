package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ruteri/toolstate-pipeline/interfaces"
)

// FileBackend implements an artifact store on the local file system, mirroring
// the bucket layout under a base directory. Used for local development and
// tests.
type FileBackend struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a new file artifact store rooted at baseDir.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FileBackend{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// List returns the artifacts under a platform/channel directory, sorted by
// object key. A missing directory is an empty listing, not an error.
func (b *FileBackend) List(ctx context.Context, platform interfaces.Platform, channel interfaces.Channel) ([]interfaces.ArtifactKey, error) {
	dir := filepath.Join(b.baseDir, string(platform), filepath.FromSlash(string(channel)))

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var keys []interfaces.ArtifactKey
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		objectKey := string(platform) + "/" + string(channel) + "/" + entry.Name()
		key, err := interfaces.ParseObjectKey(objectKey)
		if err != nil {
			b.log.Debug("Skipping non-artifact file", slog.String("key", objectKey))
			continue
		}
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].ObjectKey() < keys[j].ObjectKey() })
	return keys, nil
}

// Fetch retrieves one artifact from the file system.
// Returns ErrArtifactNotFound if the file doesn't exist.
func (b *FileBackend) Fetch(ctx context.Context, key interfaces.ArtifactKey) ([]byte, error) {
	data, err := os.ReadFile(b.filePath(key.ObjectKey()))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrArtifactNotFound, key.ObjectKey())
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Store writes one artifact, creating channel directories as needed.
func (b *FileBackend) Store(ctx context.Context, key interfaces.ArtifactKey, data []byte) error {
	filePath := b.filePath(key.ObjectKey())

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	b.log.Debug("Stored artifact in file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return nil
}

// Copy duplicates an artifact. The source file is not modified.
func (b *FileBackend) Copy(ctx context.Context, src, dst interfaces.ArtifactKey) error {
	data, err := b.Fetch(ctx, src)
	if err != nil {
		return err
	}
	return b.Store(ctx, dst, data)
}

// Delete removes the given artifacts. Missing files are ignored.
func (b *FileBackend) Delete(ctx context.Context, keys []interfaces.ArtifactKey) error {
	for _, key := range keys {
		if err := os.Remove(b.filePath(key.ObjectKey())); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete %s: %w", key.ObjectKey(), err)
		}
	}
	return nil
}

// FetchManifest returns the successful-builds manifest, or an empty string
// when it has never been written.
func (b *FileBackend) FetchManifest(ctx context.Context) (string, error) {
	data, err := os.ReadFile(filepath.Join(b.baseDir, interfaces.ManifestObject))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read manifest: %w", err)
	}
	return string(data), nil
}

// AppendManifest appends one line to the successful-builds manifest.
func (b *FileBackend) AppendManifest(ctx context.Context, line string) error {
	f, err := os.OpenFile(filepath.Join(b.baseDir, interfaces.ManifestObject),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(strings.TrimSuffix(line, "\n") + "\n"); err != nil {
		return fmt.Errorf("failed to append manifest line: %w", err)
	}
	return nil
}

// Available checks if the file backend is accessible by verifying the base directory exists.
func (b *FileBackend) Available(ctx context.Context) bool {
	info, err := os.Stat(b.baseDir)
	if err != nil || !info.IsDir() {
		b.log.Debug("File backend unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

// LocationURI returns the URI that identifies this storage backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

func (b *FileBackend) filePath(objectKey string) string {
	return filepath.Join(b.baseDir, filepath.FromSlash(objectKey))
}

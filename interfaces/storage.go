package interfaces

import (
	"context"
	"errors"
)

// ManifestObject is the well-known key of the successful-builds manifest.
// Each line records one passing toolstate round:
//
//	<RFC3339 date> <platform> <name>-<version> [<name>-<version> ...]
//
// Installers read the manifest to locate the newest passing build for their
// platform.
const ManifestObject = "successful_builds"

var (
	// ErrArtifactNotFound indicates the requested object does not exist in
	// the backend.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrBackendUnavailable indicates the storage backend cannot be reached.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI indicates a malformed storage location URI.
	ErrInvalidLocationURI = errors.New("invalid storage location URI")

	// ErrUnsupportedPlatform indicates a platform the pipeline does not
	// publish for.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrInvalidObjectKey indicates an object key that does not follow the
	// <platform>/<channel>/<name>-<version> layout.
	ErrInvalidObjectKey = errors.New("invalid object key")
)

// ArtifactStore is the interface all artifact storage backends implement.
// Artifacts are addressed by path, not content: the same key written twice
// overwrites in place, which the cache and current channels rely on. Release
// channels are written once and never rewritten.
type ArtifactStore interface {
	// List returns the artifacts under a platform/channel prefix, sorted by
	// object key.
	List(ctx context.Context, platform Platform, channel Channel) ([]ArtifactKey, error)

	// Fetch retrieves one artifact's bytes. Returns ErrArtifactNotFound if
	// the object does not exist.
	Fetch(ctx context.Context, key ArtifactKey) ([]byte, error)

	// Store uploads one artifact, overwriting any existing object.
	Store(ctx context.Context, key ArtifactKey, data []byte) error

	// Copy duplicates an object server-side. The source is never modified.
	Copy(ctx context.Context, src, dst ArtifactKey) error

	// Delete removes the given artifacts. Missing objects are not an error.
	Delete(ctx context.Context, keys []ArtifactKey) error

	// FetchManifest returns the successful-builds manifest, or an empty
	// string when it has never been written.
	FetchManifest(ctx context.Context) (string, error)

	// AppendManifest appends one line to the successful-builds manifest.
	AppendManifest(ctx context.Context, line string) error

	// Available performs a health check against the backend.
	Available(ctx context.Context) bool

	// Name returns a unique identifier for this storage backend.
	Name() string

	// LocationURI returns the URI that identifies this storage backend.
	LocationURI() string
}

// StorageFactory creates artifact stores from location URIs.
type StorageFactory interface {
	StoreFor(locationURI string, creds Credentials) (ArtifactStore, error)
}

package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ruteri/toolstate-pipeline/interfaces"
)

// Factory creates artifact stores from location URIs.
type Factory struct {
	log *slog.Logger
}

// NewFactory creates a new factory instance that can create artifact stores.
func NewFactory(logger *slog.Logger) *Factory {
	return &Factory{log: logger}
}

// StoreFor creates an artifact store from a location URI.
//
// Supported schemes:
//   - s3://bucket-name/?region=us-west-2&endpoint=... - Amazon S3 or compatible object storage
//   - file:///path/to/dir - Local filesystem storage
//
// creds is used only by backends that need write credentials; a zero value
// yields a read-only store.
func (f *Factory) StoreFor(locationURI string, creds interfaces.Credentials) (interfaces.ArtifactStore, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "s3":
		return f.createS3Store(u, creds)
	case "file":
		return f.createFileStore(u)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %s", interfaces.ErrInvalidLocationURI, u.Scheme)
	}
}

// createS3Store creates an S3 artifact store.
// URI format: s3://bucket-name/?region=us-west-2&endpoint=http://localhost:9000
func (f *Factory) createS3Store(u *url.URL, creds interfaces.Credentials) (interfaces.ArtifactStore, error) {
	bucket := u.Host
	if bucket == "" {
		return nil, fmt.Errorf("%w: missing bucket name", interfaces.ErrInvalidLocationURI)
	}

	params := u.Query()
	region := params.Get("region")
	if region == "" {
		region = "us-west-2"
	}

	return NewS3Backend(bucket, region, params.Get("endpoint"), creds, f.log)
}

// createFileStore creates a local filesystem artifact store.
// URI format: file:///var/lib/toolstate/
func (f *Factory) createFileStore(u *url.URL) (interfaces.ArtifactStore, error) {
	path := u.Path
	if u.Host != "" {
		path = u.Host + path
	}
	if path == "" {
		return nil, fmt.Errorf("%w: missing directory path", interfaces.ErrInvalidLocationURI)
	}

	return NewFileBackend(path, f.log)
}

package interfaces

import (
	"errors"
	"fmt"
	"path"
	"runtime"
	"strings"
)

// Platform identifies a build target operating system. Only 64-bit x86
// builds of linux and darwin are published.
type Platform string

const (
	PlatformLinux  Platform = "linux"
	PlatformDarwin Platform = "darwin"
)

// Platforms lists every platform the pipeline publishes for.
var Platforms = []Platform{PlatformLinux, PlatformDarwin}

// ParsePlatform validates a platform name.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case PlatformLinux, PlatformDarwin:
		return Platform(s), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, s)
}

// CurrentPlatform returns the platform of the running process, or
// ErrUnsupportedPlatform when the pipeline does not publish for it.
func CurrentPlatform() (Platform, error) {
	if runtime.GOARCH != "amd64" {
		return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedPlatform, runtime.GOOS, runtime.GOARCH)
	}
	return ParsePlatform(runtime.GOOS)
}

// Channel is the lifecycle stage of a published artifact within a platform
// prefix: "cache" holds every built version, "current" the continuously
// deployed one, and "release/<label>" a dated immutable snapshot.
type Channel string

const (
	ChannelCache   Channel = "cache"
	ChannelCurrent Channel = "current"
)

// ReleaseChannel returns the channel for a dated release snapshot.
func ReleaseChannel(label string) Channel {
	return Channel("release/" + label)
}

// IsRelease reports whether the channel is a release snapshot.
func (c Channel) IsRelease() bool {
	return strings.HasPrefix(string(c), "release/")
}

// ArtifactKey addresses one published tool binary in the object store.
// The object key layout is <platform>/<channel>/<name>-<version>.
type ArtifactKey struct {
	Platform Platform
	Channel  Channel
	Name     string
	Version  string
}

// ObjectKey renders the store key for this artifact.
func (k ArtifactKey) ObjectKey() string {
	return path.Join(string(k.Platform), string(k.Channel), k.Name+"-"+k.Version)
}

// WithChannel returns a copy of the key addressed under a different channel.
func (k ArtifactKey) WithChannel(c Channel) ArtifactKey {
	k.Channel = c
	return k
}

// ParseObjectKey parses a store key back into an ArtifactKey. Tool names may
// themselves contain dashes; the version is the portion after the last dash.
func ParseObjectKey(key string) (ArtifactKey, error) {
	parts := strings.Split(key, "/")
	if len(parts) < 3 {
		return ArtifactKey{}, fmt.Errorf("%w: %s", ErrInvalidObjectKey, key)
	}

	platform, err := ParsePlatform(parts[0])
	if err != nil {
		return ArtifactKey{}, fmt.Errorf("%w: %s", ErrInvalidObjectKey, key)
	}

	base := parts[len(parts)-1]
	idx := strings.LastIndex(base, "-")
	if idx <= 0 || idx == len(base)-1 {
		return ArtifactKey{}, fmt.Errorf("%w: no name-version in %s", ErrInvalidObjectKey, key)
	}

	return ArtifactKey{
		Platform: platform,
		Channel:  Channel(strings.Join(parts[1:len(parts)-1], "/")),
		Name:     base[:idx],
		Version:  base[idx+1:],
	}, nil
}

// Credentials is a temporary storage credential triple issued through the
// Vault AWS secrets engine. It is passed explicitly between components and
// never written into the process environment.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Validate reports whether all three fields are present.
func (c Credentials) Validate() error {
	if c.AccessKeyID == "" || c.SecretAccessKey == "" || c.SessionToken == "" {
		return errors.New("incomplete credential triple")
	}
	return nil
}

// TSV renders the triple as a single tab-separated line.
func (c Credentials) TSV() string {
	return c.AccessKeyID + "\t" + c.SecretAccessKey + "\t" + c.SessionToken
}

// ExportStatements renders the triple as shell export statements suitable
// for eval in a calling shell.
func (c Credentials) ExportStatements() []string {
	return []string{
		"export AWS_ACCESS_KEY_ID=" + c.AccessKeyID,
		"export AWS_SECRET_ACCESS_KEY=" + c.SecretAccessKey,
		"export AWS_SESSION_TOKEN=" + c.SessionToken,
	}
}

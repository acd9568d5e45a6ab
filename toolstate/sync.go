package toolstate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ruteri/toolstate-pipeline/interfaces"
)

// Syncer publishes built binaries to the object store and keeps the cache
// and current channels pruned to one version per tool.
type Syncer struct {
	store    interfaces.ArtifactStore
	platform interfaces.Platform
	builder  *Builder
	log      *slog.Logger

	// Now is the clock used for manifest timestamps. Defaults to time.Now.
	Now func() time.Time
}

// NewSyncer creates a syncer publishing this platform's binaries from the
// builder's bin directory.
func NewSyncer(store interfaces.ArtifactStore, platform interfaces.Platform, builder *Builder, log *slog.Logger) *Syncer {
	return &Syncer{
		store:    store,
		platform: platform,
		builder:  builder,
		log:      log,
		Now:      time.Now,
	}
}

// Sync uploads every built binary to the cache channel and prunes superseded
// cache objects. When updateCurrent is set (the build round passed), it also
// promotes the head versions into the current channel, prunes outdated
// current objects, and appends a successful-builds manifest line.
//
// Sync runs even after a failed build round so that whatever did build is
// cached; current only moves on success.
func (s *Syncer) Sync(ctx context.Context, head, cached map[string]string, updateCurrent bool) error {
	built, err := s.builder.Binaries()
	if err != nil {
		return err
	}

	var toDelete []interfaces.ArtifactKey

	for _, name := range built {
		version, ok := head[name]
		if !ok {
			s.log.Warn("Built binary has no head version, skipping",
				slog.String("tool", name))
			continue
		}

		data, err := os.ReadFile(s.builder.BinaryPath(name))
		if err != nil {
			return fmt.Errorf("reading built %s: %w", name, err)
		}

		cacheKey := s.key(interfaces.ChannelCache, name, version)
		if err := s.store.Store(ctx, cacheKey, data); err != nil {
			return fmt.Errorf("uploading %s to cache: %w", name, err)
		}
		s.log.Info("Uploaded tool to cache",
			slog.String("tool", name),
			slog.String("version", version))

		if old := cached[name]; old != "" && old != version {
			toDelete = append(toDelete, s.key(interfaces.ChannelCache, name, old))
		}
	}

	if updateCurrent {
		current, err := StoredVersions(ctx, s.store, s.platform, interfaces.ChannelCurrent)
		if err != nil {
			return fmt.Errorf("listing current versions: %w", err)
		}

		for name, version := range current {
			if head[name] != version {
				toDelete = append(toDelete, s.key(interfaces.ChannelCurrent, name, version))
			}
		}

		// Every head version is in the cache by now: uploaded above if it
		// was built this round, left from an earlier round otherwise.
		for _, name := range sortedNames(head) {
			version := head[name]
			if current[name] == version {
				continue
			}
			src := s.key(interfaces.ChannelCache, name, version)
			dst := s.key(interfaces.ChannelCurrent, name, version)
			if err := s.store.Copy(ctx, src, dst); err != nil {
				return fmt.Errorf("promoting %s to current: %w", name, err)
			}
		}

		if err := s.store.AppendManifest(ctx, s.manifestLine(head)); err != nil {
			return err
		}
	}

	if err := s.store.Delete(ctx, toDelete); err != nil {
		return err
	}

	return nil
}

func (s *Syncer) key(channel interfaces.Channel, name, version string) interfaces.ArtifactKey {
	return interfaces.ArtifactKey{
		Platform: s.platform,
		Channel:  channel,
		Name:     name,
		Version:  version,
	}
}

// manifestLine renders one successful-builds record:
// <date> <platform> <name>-<version> [<name>-<version> ...]
func (s *Syncer) manifestLine(head map[string]string) string {
	parts := []string{
		s.Now().UTC().Format(time.RFC3339),
		string(s.platform),
	}
	for _, name := range sortedNames(head) {
		parts = append(parts, name+"-"+head[name])
	}
	return strings.Join(parts, " ")
}

func sortedNames(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package toolstate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ruteri/toolstate-pipeline/interfaces"
)

// Updater runs one toolstate round: probe head revisions, build whatever
// moved, and publish the results.
type Updater struct {
	cfg      *Config
	store    interfaces.ArtifactStore
	builder  *Builder
	syncer   *Syncer
	run      RunFunc
	platform interfaces.Platform
	log      *slog.Logger
}

// NewUpdater wires an update round for one platform.
func NewUpdater(cfg *Config, store interfaces.ArtifactStore, builder *Builder, syncer *Syncer, run RunFunc, platform interfaces.Platform, log *slog.Logger) *Updater {
	return &Updater{
		cfg:      cfg,
		store:    store,
		builder:  builder,
		syncer:   syncer,
		run:      run,
		platform: platform,
		log:      log,
	}
}

// Update performs one round. Rounds are idempotent: when every tool's cached
// version already matches its head revision nothing is built or uploaded.
//
// A failed build still syncs: binaries that did build land in the cache, but
// the current channel and the manifest only move when the whole round
// passed.
func (u *Updater) Update(ctx context.Context) error {
	head, err := HeadVersions(ctx, u.cfg, u.run, u.log)
	if err != nil {
		return err
	}

	cached, err := StoredVersions(ctx, u.store, u.platform, interfaces.ChannelCache)
	if err != nil {
		return err
	}

	var toBuild []ToolBuild
	for name, version := range head {
		if cached[name] != version {
			toBuild = append(toBuild, ToolBuild{Tool: u.cfg.Tools[name], Version: version})
		}
	}

	if len(toBuild) == 0 {
		u.log.Info("All tools up to date", slog.String("current", formatVersions(head)))
		return nil
	}

	u.log.Info("Building tools",
		slog.Int("count", len(toBuild)),
		slog.String("platform", string(u.platform)))

	buildErr := u.builder.Build(ctx, toBuild)
	if buildErr != nil {
		u.log.Error("Build round failed", "err", buildErr)
	}

	syncErr := u.syncer.Sync(ctx, head, cached, buildErr == nil)

	if buildErr != nil {
		return fmt.Errorf("build round failed: %w", errors.Join(buildErr, syncErr))
	}
	return syncErr
}

func formatVersions(versions map[string]string) string {
	parts := make([]string, 0, len(versions))
	for _, name := range sortedNames(versions) {
		parts = append(parts, name+"-"+versions[name])
	}
	return strings.Join(parts, " ")
}

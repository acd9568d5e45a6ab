package toolstate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ruteri/toolstate-pipeline/interfaces"
)

// versionLen is the abbreviated git revision length used as a tool version.
const versionLen = 7

// HeadVersions probes every tool source for the tip of its master branch and
// returns {tool name: abbreviated revision}.
func HeadVersions(ctx context.Context, cfg *Config, run RunFunc, log *slog.Logger) (map[string]string, error) {
	sourceRevs := make(map[string]string)
	for _, source := range cfg.Sources() {
		out, err := run(ctx, "", "git", "ls-remote", source, "master")
		if err != nil {
			return nil, fmt.Errorf("probing %s: %w", source, err)
		}

		rev, err := parseLsRemote(string(out))
		if err != nil {
			return nil, fmt.Errorf("probing %s: %w", source, err)
		}
		sourceRevs[source] = rev

		log.Debug("Probed head revision",
			slog.String("source", source),
			slog.String("rev", rev))
	}

	versions := make(map[string]string, len(cfg.Tools))
	for name, tool := range cfg.Tools {
		versions[name] = sourceRevs[tool.Source]
	}
	return versions, nil
}

// parseLsRemote extracts the abbreviated revision from git ls-remote output
// ("<sha>\t<ref>").
func parseLsRemote(out string) (string, error) {
	fields := strings.Fields(out)
	if len(fields) == 0 || len(fields[0]) < versionLen {
		return "", fmt.Errorf("unexpected ls-remote output: %q", out)
	}
	return fields[0][:versionLen], nil
}

// StoredVersions lists a channel and returns {tool name: version}.
func StoredVersions(ctx context.Context, store interfaces.ArtifactStore, platform interfaces.Platform, channel interfaces.Channel) (map[string]string, error) {
	keys, err := store.List(ctx, platform, channel)
	if err != nil {
		return nil, err
	}

	versions := make(map[string]string, len(keys))
	for _, key := range keys {
		versions[key.Name] = key.Version
	}
	return versions, nil
}

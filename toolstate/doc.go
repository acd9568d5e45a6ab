// Package toolstate implements the periodic toolchain update round: probe
// each tool source for its head revision, build the tools that moved,
// publish the binaries, and record the round's outcome.
//
// # Channels
//
// Built binaries land in the cache channel keyed by abbreviated git
// revision. When a whole round builds cleanly, the head versions are
// promoted into the current channel (server-side copies plus fresh uploads)
// and superseded objects in both channels are pruned. A round that fails to
// build leaves current untouched; partial results stay cached so the next
// round does not rebuild them.
//
// # Toolstate Recording
//
// Each passing round appends one line to the successful_builds manifest:
//
//	<RFC3339 date> <platform> <name>-<version> [<name>-<version> ...]
//
// The manifest is what installers consult for the newest passing build, so
// it only ever advances on success.
//
// The round runs independently per platform as uncoordinated CI jobs; there
// is no cross-platform synchronization.
package toolstate

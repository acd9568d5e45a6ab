// Package installer bootstraps the toolchain CLI on a developer machine or
// CI runner: it reads the successful-builds manifest, downloads the newest
// passing CLI build for the platform from the current channel, and selects a
// toolchain through it.
//
// Speedrun mode runs the CLI once with stdin closed so its first-run prompt
// accepts defaults, which is what the scheduled toolstate jobs use.
package installer

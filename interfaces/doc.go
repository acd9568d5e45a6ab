// Package interfaces defines the shared types and contracts of the toolstate
// pipeline: platforms and channels, artifact addressing, the temporary
// credential triple, and the artifact store interface implemented by the
// storage backends.
//
// # Artifact Addressing
//
// Published artifacts live in an object store bucket laid out as
//
//	<platform>/<channel>/<name>-<version>
//
// where platform is linux or darwin and channel is one of:
//
//   - cache - every version ever built, keyed by git revision
//   - current - the continuously deployed build
//   - release/<YY.WW> - a dated, immutable weekly snapshot
//
// # Credentials
//
// Write access to the store uses short-lived credentials obtained through a
// Vault AWS/STS exchange (see the vaultsts package). The triple is carried in
// an explicit Credentials value rather than the process environment so that
// the set of components able to write is visible in the call graph.
package interfaces

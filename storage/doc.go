// Package storage provides the artifact store backends of the toolstate
// pipeline.
//
// Artifacts are opaque tool binaries addressed by path, laid out as
//
//	<platform>/<channel>/<name>-<version>
//
// plus a single well-known successful_builds manifest object at the bucket
// root. Two backends implement the interfaces.ArtifactStore contract:
//
//   - S3Backend - Amazon S3 or compatible object storage, the production
//     store. Reads are anonymous against the public tools bucket; writes use
//     the temporary credential triple from the Vault STS exchange.
//   - FileBackend - the same layout on a local directory, for development
//     and tests.
//
// # Storage URI Format
//
// Stores are specified using URI format and constructed through the Factory:
//
//	s3://tools.example.dev/?region=us-west-2
//	s3://tools.example.dev/?region=us-east-1&endpoint=http://localhost:9000
//	file:///var/lib/toolstate/
//
// # Write Semantics
//
// The cache and current channels are mutable: publishing a new build
// overwrites and prunes objects there. Release channels are written by the
// promotion flow and never rewritten afterwards; the promotion flow itself
// refuses to target a non-empty release prefix.
package storage

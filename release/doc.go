// Package release promotes the continuously deployed "current" artifacts
// into dated, immutable weekly snapshots under release/<YY.WW>.
//
// Promotion is copy-only: nothing under current is deleted or overwritten.
// Interactive runs are gated on the operator typing an exact confirmation
// phrase; scheduled runs skip the gate.
package release

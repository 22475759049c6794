// Package storage manages the directory finished downloads are written to.
//
// Files are only ever addressed by bare name, so callers cannot reach
// outside the directory. Each download gets a <file>.info.json sidecar with
// its metadata, and Sweep removes anything older than the retention period.
package storage

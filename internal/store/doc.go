// Package store persists completed conversation turns to SQLite for history
// readback. Transcripts are an audit trail; dispatch never reads them.
package store

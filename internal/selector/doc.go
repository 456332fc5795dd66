// Package selector scores inputs against configured trigger terms to pick an
// agent type. Selection is pure and deterministic so it can run on the
// dispatch hot path.
package selector

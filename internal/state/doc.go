// Package state persists what a build published: the hash and recorded
// dependencies of every output Url, plus a history of build passes. It is
// backed by SQLite so a restarted process can skip unchanged writes, remove
// outputs that vanished while it was down, and explain why a Url depends on
// a source path.
package state

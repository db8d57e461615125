// Package content holds the content model of a build: content types,
// tagged-union bindings with ordered lookup scopes, items with their
// dependency edges, and the Url-keyed store that owns every item of a build.
//
// The package performs no I/O. File items carry a loader function that the
// source layer supplies; everything else is plain data.
package content

// Package errors provides the classified error primitives used across the site builder.
//
// The taxonomy mirrors how a build reacts to a failure:
//   - CategoryConfig: bad pattern, URL or option; aborts the responsible plugin's setup
//   - CategoryContent: per-item failure (conversion, layout cycle, missing binding)
//   - CategoryIO: source or sink I/O; severity decides whether it is soft or hard
//   - CategoryFatal: pipeline misconfiguration such as a runaway Continue loop
//   - CategoryConflict: two live items claiming the same output URL
//
// Example usage:
//
//	err := errors.ContentError("layout cycle").
//		WithContext("url", item.URL()).
//		WithContext("layout", name).
//		Build()
package errors

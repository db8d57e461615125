// Package plugins holds the built-in processors of a site build and the
// default registry that wires them in order.
//
// Stage processors run once per stage; item processors are offered every
// item of the Process stage. Registration order is execution order.
package plugins

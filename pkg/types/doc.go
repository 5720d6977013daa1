// Package types defines the shared domain types for the docwire versioning
// system: version identifiers, history log structures, watcher registry
// entries, and the standard sentinel errors reported by every component.
package types

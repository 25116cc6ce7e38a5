// Package reconcile aligns a source manifest with the current one before a merge
// and implements the cascading "+suffix" naming convention for branches and tags.
package reconcile

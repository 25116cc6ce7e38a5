// Package vcs defines the capability contract every version-control backend
// satisfies and the registry that identifies which backend owns a directory.
package vcs

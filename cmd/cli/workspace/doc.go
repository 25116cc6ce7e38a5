// Package workspace builds the Cobra commands that operate on a manifest
// workspace: init, create, add, delete, list, branch, checkout, merge, status,
// update, tag and exec.
package workspace

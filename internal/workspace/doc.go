// Package workspace implements the manifest commands (create, add, delete,
// list, branch, checkout, merge, status, update, tag, init and exec) on top of
// the manifest store, the backend registry and the orchestrator.
//
// Every operation receives the workspace State explicitly; nothing about the
// current manifest is kept in package-level variables.
package workspace

// Package manifest models the declarative description of a workspace and
// persists named manifests under the workspace's .manifest directory.
//
// A manifest maps workspace-relative repository paths to the remote URL, the
// ref that should be checked out, and the backend that manages the repository.
// Paths iterate in lexicographic order, which is also the order they are
// serialized in, so every traversal of a manifest is deterministic.
package manifest

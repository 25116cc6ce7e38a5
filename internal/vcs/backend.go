package vcs

import "context"

// Output captures what a backend operation printed.
type Output struct {
	StandardOutput string
	StandardError  string
	// Reference reports the revision a repository ended on when the operation resolves one.
	Reference string
}

// Backend is the capability set the workspace engine relies on. Every method that
// talks to a version-control tool fails with a faults.KindBackendOperation error
// carrying the tool's raw diagnostic.
type Backend interface {
	// Name is the identifier stored in manifest entries.
	Name() string
	// IsLikely is a cheap filesystem heuristic and never fails.
	IsLikely(repositoryPath string) bool
	// IsConfirmed verifies that repositoryPath is the top-level working directory of a repository.
	IsConfirmed(executionContext context.Context, repositoryPath string) (bool, error)
	// GetURL returns the preferred remote URL, or an empty string when the repository has no remote.
	GetURL(executionContext context.Context, repositoryPath string) (string, error)
	// GetRef returns the current branch name, or the full commit identifier when detached.
	GetRef(executionContext context.Context, repositoryPath string) (string, error)
	IsBranchCreated(executionContext context.Context, repositoryPath string, branchName string) (bool, error)
	// CreateBranch creates branchName and switches to it.
	CreateBranch(executionContext context.Context, repositoryPath string, branchName string) (Output, error)
	CreateTag(executionContext context.Context, repositoryPath string, tagName string) (Output, error)
	Checkout(executionContext context.Context, repositoryPath string, reference string) (Output, error)
	// Merge merges fromReference into the currently checked out revision.
	Merge(executionContext context.Context, repositoryPath string, fromReference string) (Output, error)
	Clone(executionContext context.Context, repositoryPath string, remoteURL string) (Output, error)
	GetStatus(executionContext context.Context, repositoryPath string) (Output, error)
}

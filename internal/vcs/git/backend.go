package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/temirov/wsm/internal/execshell"
	"github.com/temirov/wsm/internal/faults"
	"github.com/temirov/wsm/internal/vcs"
)

const (
	// BackendName is the identifier stored in manifest entries for git repositories.
	BackendName = "git"

	defaultPreferredRemoteConstant            = "origin"
	gitMetadataEntryNameConstant              = ".git"
	gitTerminalPromptEnvironmentNameConstant  = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisabledValueConstant    = "0"
	gitRevParseSubcommandConstant             = "rev-parse"
	gitShowToplevelFlagConstant               = "--show-toplevel"
	gitHeadReferenceConstant                  = "HEAD"
	gitSymbolicRefSubcommandConstant          = "symbolic-ref"
	gitQuietFlagConstant                      = "--quiet"
	gitShortFlagConstant                      = "--short"
	gitRemoteSubcommandConstant               = "remote"
	gitRemoteGetURLSubcommandConstant         = "get-url"
	gitBranchSubcommandConstant               = "branch"
	gitAllFlagConstant                        = "--all"
	gitRefnameFormatFlagConstant              = "--format=%(refname)"
	gitCheckoutSubcommandConstant             = "checkout"
	gitCreateBranchFlagConstant               = "-b"
	gitTagSubcommandConstant                  = "tag"
	gitMergeSubcommandConstant                = "merge"
	gitNoEditFlagConstant                     = "--no-edit"
	gitCloneSubcommandConstant                = "clone"
	gitStatusSubcommandConstant               = "status"
	localBranchReferencePrefixConstant        = "refs/heads/"
	remoteBranchReferencePrefixConstant       = "refs/remotes/"
	referenceSeparatorConstant                = "/"
	operationFailedTemplateConstant           = "git %s failed"
	cloneParentCreationFailedTemplateConstant = "unable to prepare clone destination for %s"
	cloneParentDirectoryPermissionsConstant   = 0o755
)

// CommandExecutor runs git commands.
type CommandExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Options tunes the backend.
type Options struct {
	// PreferredRemote is consulted first when resolving a repository URL.
	PreferredRemote string
	// CommandTimeout bounds every git invocation when positive.
	CommandTimeout time.Duration
}

// Backend is the git implementation of vcs.Backend.
type Backend struct {
	executor CommandExecutor
	options  Options
}

// NewBackend constructs a git backend.
func NewBackend(executor CommandExecutor, options Options) *Backend {
	if len(strings.TrimSpace(options.PreferredRemote)) == 0 {
		options.PreferredRemote = defaultPreferredRemoteConstant
	}
	return &Backend{executor: executor, options: options}
}

// Name returns BackendName.
func (backend *Backend) Name() string {
	return BackendName
}

// IsLikely reports whether repositoryPath contains a .git entry. Linked worktrees
// and submodules use a .git file, so both files and directories qualify.
func (backend *Backend) IsLikely(repositoryPath string) bool {
	_, statError := os.Stat(filepath.Join(repositoryPath, gitMetadataEntryNameConstant))
	return statError == nil
}

// IsConfirmed asks git for the working tree root and compares it with repositoryPath.
func (backend *Backend) IsConfirmed(executionContext context.Context, repositoryPath string) (bool, error) {
	result, executionError := backend.run(executionContext, repositoryPath, gitRevParseSubcommandConstant, gitShowToplevelFlagConstant)
	if executionError != nil {
		if isNonZeroExit(executionError) {
			return false, nil
		}
		return false, backend.describeFailure(gitRevParseSubcommandConstant, repositoryPath, executionError)
	}

	return sameDirectory(strings.TrimSpace(result.StandardOutput), repositoryPath), nil
}

// GetURL returns the preferred remote's URL, falling back to the first listed remote.
func (backend *Backend) GetURL(executionContext context.Context, repositoryPath string) (string, error) {
	result, executionError := backend.run(executionContext, repositoryPath, gitRemoteSubcommandConstant)
	if executionError != nil {
		return "", backend.describeFailure(gitRemoteSubcommandConstant, repositoryPath, executionError)
	}

	remoteName := backend.selectRemote(splitLines(result.StandardOutput))
	if len(remoteName) == 0 {
		return "", nil
	}

	urlResult, urlError := backend.run(executionContext, repositoryPath, gitRemoteSubcommandConstant, gitRemoteGetURLSubcommandConstant, remoteName)
	if urlError != nil {
		return "", backend.describeFailure(gitRemoteSubcommandConstant, repositoryPath, urlError)
	}
	return strings.TrimSpace(urlResult.StandardOutput), nil
}

// GetRef returns the current branch, or the commit identifier when HEAD is detached.
func (backend *Backend) GetRef(executionContext context.Context, repositoryPath string) (string, error) {
	branchResult, branchError := backend.run(executionContext, repositoryPath, gitSymbolicRefSubcommandConstant, gitQuietFlagConstant, gitShortFlagConstant, gitHeadReferenceConstant)
	if branchError == nil {
		return strings.TrimSpace(branchResult.StandardOutput), nil
	}
	if !isNonZeroExit(branchError) {
		return "", backend.describeFailure(gitSymbolicRefSubcommandConstant, repositoryPath, branchError)
	}

	revisionResult, revisionError := backend.run(executionContext, repositoryPath, gitRevParseSubcommandConstant, gitHeadReferenceConstant)
	if revisionError != nil {
		return "", backend.describeFailure(gitRevParseSubcommandConstant, repositoryPath, revisionError)
	}
	return strings.TrimSpace(revisionResult.StandardOutput), nil
}

// IsBranchCreated reports whether branchName exists locally or on any remote.
func (backend *Backend) IsBranchCreated(executionContext context.Context, repositoryPath string, branchName string) (bool, error) {
	result, executionError := backend.run(executionContext, repositoryPath, gitBranchSubcommandConstant, gitAllFlagConstant, gitRefnameFormatFlagConstant)
	if executionError != nil {
		return false, backend.describeFailure(gitBranchSubcommandConstant, repositoryPath, executionError)
	}

	for _, reference := range splitLines(result.StandardOutput) {
		if reference == localBranchReferencePrefixConstant+branchName {
			return true, nil
		}
		remoteReference, isRemote := strings.CutPrefix(reference, remoteBranchReferencePrefixConstant)
		if !isRemote {
			continue
		}
		if _, remoteBranch, hasRemote := strings.Cut(remoteReference, referenceSeparatorConstant); hasRemote && remoteBranch == branchName {
			return true, nil
		}
	}
	return false, nil
}

// CreateBranch creates branchName at the current revision and switches to it.
func (backend *Backend) CreateBranch(executionContext context.Context, repositoryPath string, branchName string) (vcs.Output, error) {
	output, executionError := backend.mutate(executionContext, repositoryPath, gitCheckoutSubcommandConstant, gitCreateBranchFlagConstant, branchName)
	output.Reference = branchName
	return output, executionError
}

// CreateTag creates a lightweight tag at the current revision.
func (backend *Backend) CreateTag(executionContext context.Context, repositoryPath string, tagName string) (vcs.Output, error) {
	return backend.mutate(executionContext, repositoryPath, gitTagSubcommandConstant, tagName)
}

// Checkout switches the working tree to reference.
func (backend *Backend) Checkout(executionContext context.Context, repositoryPath string, reference string) (vcs.Output, error) {
	output, executionError := backend.mutate(executionContext, repositoryPath, gitCheckoutSubcommandConstant, reference)
	output.Reference = reference
	return output, executionError
}

// Merge merges fromReference into the current branch without opening an editor.
func (backend *Backend) Merge(executionContext context.Context, repositoryPath string, fromReference string) (vcs.Output, error) {
	return backend.mutate(executionContext, repositoryPath, gitMergeSubcommandConstant, gitNoEditFlagConstant, fromReference)
}

// Clone clones remoteURL into repositoryPath, creating missing parent directories.
func (backend *Backend) Clone(executionContext context.Context, repositoryPath string, remoteURL string) (vcs.Output, error) {
	parentDirectory := filepath.Dir(repositoryPath)
	if creationError := os.MkdirAll(parentDirectory, cloneParentDirectoryPermissionsConstant); creationError != nil {
		return vcs.Output{}, faults.Newf(faults.KindBackendOperation, cloneParentCreationFailedTemplateConstant, remoteURL).WithPath(repositoryPath).WithCause(creationError)
	}
	output, executionError := backend.mutateIn(executionContext, parentDirectory, repositoryPath, gitCloneSubcommandConstant, remoteURL, repositoryPath)
	if executionError != nil {
		var classified *faults.Error
		if errors.As(executionError, &classified) {
			return output, classified.WithURL(remoteURL)
		}
	}
	return output, executionError
}

// GetStatus returns the human-readable working tree status.
func (backend *Backend) GetStatus(executionContext context.Context, repositoryPath string) (vcs.Output, error) {
	return backend.mutate(executionContext, repositoryPath, gitStatusSubcommandConstant)
}

func (backend *Backend) mutate(executionContext context.Context, repositoryPath string, arguments ...string) (vcs.Output, error) {
	return backend.mutateIn(executionContext, repositoryPath, repositoryPath, arguments...)
}

func (backend *Backend) mutateIn(executionContext context.Context, workingDirectory string, repositoryPath string, arguments ...string) (vcs.Output, error) {
	result, executionError := backend.run(executionContext, workingDirectory, arguments...)
	if executionError != nil {
		return vcs.Output{}, backend.describeFailure(arguments[0], repositoryPath, executionError)
	}
	return vcs.Output{StandardOutput: result.StandardOutput, StandardError: result.StandardError}, nil
}

func (backend *Backend) run(executionContext context.Context, workingDirectory string, arguments ...string) (execshell.ExecutionResult, error) {
	if backend.options.CommandTimeout > 0 {
		var cancel context.CancelFunc
		executionContext, cancel = context.WithTimeout(executionContext, backend.options.CommandTimeout)
		defer cancel()
	}

	return backend.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     workingDirectory,
		EnvironmentVariables: map[string]string{gitTerminalPromptEnvironmentNameConstant: gitTerminalPromptDisabledValueConstant},
	})
}

func (backend *Backend) selectRemote(remoteNames []string) string {
	for _, remoteName := range remoteNames {
		if remoteName == backend.options.PreferredRemote {
			return remoteName
		}
	}
	if len(remoteNames) == 0 {
		return ""
	}
	return remoteNames[0]
}

func (backend *Backend) describeFailure(subcommand string, repositoryPath string, executionError error) error {
	failure := faults.Newf(faults.KindBackendOperation, operationFailedTemplateConstant, subcommand).WithPath(repositoryPath)

	var commandFailure execshell.CommandFailedError
	if errors.As(executionError, &commandFailure) {
		return failure.WithDiagnostic(commandFailure.Result.StandardError, commandFailure.Result.ExitCode).WithCause(executionError)
	}
	return failure.WithCause(executionError)
}

func isNonZeroExit(executionError error) bool {
	var commandFailure execshell.CommandFailedError
	return errors.As(executionError, &commandFailure)
}

func splitLines(output string) []string {
	lines := make([]string, 0)
	for _, line := range strings.Split(output, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if len(trimmedLine) == 0 {
			continue
		}
		lines = append(lines, trimmedLine)
	}
	return lines
}

func sameDirectory(reportedPath string, repositoryPath string) bool {
	if len(reportedPath) == 0 {
		return false
	}
	return canonicalPath(reportedPath) == canonicalPath(repositoryPath)
}

func canonicalPath(candidatePath string) string {
	absolutePath, absoluteError := filepath.Abs(candidatePath)
	if absoluteError != nil {
		absolutePath = candidatePath
	}
	if resolvedPath, resolveError := filepath.EvalSymlinks(absolutePath); resolveError == nil {
		return filepath.Clean(resolvedPath)
	}
	return filepath.Clean(absolutePath)
}

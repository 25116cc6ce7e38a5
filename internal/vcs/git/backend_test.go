package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/wsm/internal/execshell"
	"github.com/temirov/wsm/internal/faults"
)

type stubGitExecutor struct {
	recorded  []execshell.CommandDetails
	responses []stubGitResponse
	deadlines []bool
}

type stubGitResponse struct {
	result execshell.ExecutionResult
	err    error
}

func (executor *stubGitExecutor) ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recorded = append(executor.recorded, details)
	_, hasDeadline := executionContext.Deadline()
	executor.deadlines = append(executor.deadlines, hasDeadline)
	if len(executor.responses) == 0 {
		return execshell.ExecutionResult{}, nil
	}

	next := executor.responses[0]
	executor.responses = executor.responses[1:]
	if next.err != nil {
		return execshell.ExecutionResult{}, next.err
	}
	return next.result, nil
}

func output(standardOutput string) stubGitResponse {
	return stubGitResponse{result: execshell.ExecutionResult{StandardOutput: standardOutput}}
}

func exitFailure(exitCode int, standardError string) stubGitResponse {
	return stubGitResponse{err: execshell.CommandFailedError{
		Command: execshell.ShellCommand{Name: execshell.CommandGit},
		Result:  execshell.ExecutionResult{ExitCode: exitCode, StandardError: standardError},
	}}
}

func TestIsLikelyChecksGitMetadata(testInstance *testing.T) {
	backend := NewBackend(&stubGitExecutor{}, Options{})

	plainDirectory := testInstance.TempDir()
	require.False(testInstance, backend.IsLikely(plainDirectory))

	repositoryDirectory := testInstance.TempDir()
	require.NoError(testInstance, os.Mkdir(filepath.Join(repositoryDirectory, ".git"), 0o755))
	require.True(testInstance, backend.IsLikely(repositoryDirectory))

	worktreeDirectory := testInstance.TempDir()
	require.NoError(testInstance, os.WriteFile(filepath.Join(worktreeDirectory, ".git"), []byte("gitdir: ../main/.git/worktrees/x\n"), 0o600))
	require.True(testInstance, backend.IsLikely(worktreeDirectory))
}

func TestIsConfirmedComparesToplevel(testInstance *testing.T) {
	repositoryDirectory := testInstance.TempDir()
	nestedDirectory := filepath.Join(repositoryDirectory, "pkg")
	require.NoError(testInstance, os.Mkdir(nestedDirectory, 0o755))

	testCases := []struct {
		name          string
		path          string
		response      stubGitResponse
		expected      bool
		expectedError bool
	}{
		{name: "toplevel_matches", path: repositoryDirectory, response: output(repositoryDirectory + "\n"), expected: true},
		{name: "nested_directory", path: nestedDirectory, response: output(repositoryDirectory + "\n"), expected: false},
		{name: "not_a_repository", path: repositoryDirectory, response: exitFailure(128, "fatal: not a git repository"), expected: false},
		{name: "git_missing", path: repositoryDirectory, response: stubGitResponse{err: execshell.CommandExecutionError{Cause: errors.New("executable file not found")}}, expectedError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &stubGitExecutor{responses: []stubGitResponse{testCase.response}}
			confirmed, confirmationError := NewBackend(executor, Options{}).IsConfirmed(context.Background(), testCase.path)
			if testCase.expectedError {
				require.True(testInstance, faults.HasKind(confirmationError, faults.KindBackendOperation))
				return
			}
			require.NoError(testInstance, confirmationError)
			require.Equal(testInstance, testCase.expected, confirmed)
			require.Equal(testInstance, []string{"rev-parse", "--show-toplevel"}, executor.recorded[0].Arguments)
			require.Equal(testInstance, "0", executor.recorded[0].EnvironmentVariables["GIT_TERMINAL_PROMPT"])
		})
	}
}

func TestGetURLPrefersConfiguredRemote(testInstance *testing.T) {
	testCases := []struct {
		name            string
		preferredRemote string
		remotes         string
		expectedRemote  string
	}{
		{name: "origin_first", remotes: "upstream\norigin\n", expectedRemote: "origin"},
		{name: "first_listed_without_origin", remotes: "upstream\nfork\n", expectedRemote: "upstream"},
		{name: "configured_preference", preferredRemote: "fork", remotes: "origin\nfork\n", expectedRemote: "fork"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &stubGitExecutor{responses: []stubGitResponse{output(testCase.remotes), output("https://example.com/api.git\n")}}
			remoteURL, urlError := NewBackend(executor, Options{PreferredRemote: testCase.preferredRemote}).GetURL(context.Background(), "/workspace/api")
			require.NoError(testInstance, urlError)
			require.Equal(testInstance, "https://example.com/api.git", remoteURL)
			require.Equal(testInstance, []string{"remote", "get-url", testCase.expectedRemote}, executor.recorded[1].Arguments)
		})
	}
}

func TestGetURLWithoutRemotesIsEmpty(testInstance *testing.T) {
	executor := &stubGitExecutor{responses: []stubGitResponse{output("")}}
	remoteURL, urlError := NewBackend(executor, Options{}).GetURL(context.Background(), "/workspace/api")
	require.NoError(testInstance, urlError)
	require.Empty(testInstance, remoteURL)
	require.Len(testInstance, executor.recorded, 1)
}

func TestGetRefFallsBackToCommitWhenDetached(testInstance *testing.T) {
	executor := &stubGitExecutor{responses: []stubGitResponse{output("feature/login\n")}}
	reference, referenceError := NewBackend(executor, Options{}).GetRef(context.Background(), "/workspace/api")
	require.NoError(testInstance, referenceError)
	require.Equal(testInstance, "feature/login", reference)

	detachedExecutor := &stubGitExecutor{responses: []stubGitResponse{exitFailure(1, ""), output("4b825dc642cb6eb9a060e54bf8d69288fbee4904\n")}}
	reference, referenceError = NewBackend(detachedExecutor, Options{}).GetRef(context.Background(), "/workspace/api")
	require.NoError(testInstance, referenceError)
	require.Equal(testInstance, "4b825dc642cb6eb9a060e54bf8d69288fbee4904", reference)
	require.Equal(testInstance, []string{"symbolic-ref", "--quiet", "--short", "HEAD"}, detachedExecutor.recorded[0].Arguments)
	require.Equal(testInstance, []string{"rev-parse", "HEAD"}, detachedExecutor.recorded[1].Arguments)
}

func TestIsBranchCreatedInspectsLocalAndRemoteBranches(testInstance *testing.T) {
	references := "refs/heads/main\nrefs/remotes/origin/HEAD\nrefs/remotes/origin/release/1.0\n"
	testCases := []struct {
		name     string
		branch   string
		expected bool
	}{
		{name: "local", branch: "main", expected: true},
		{name: "remote_with_slash", branch: "release/1.0", expected: true},
		{name: "absent", branch: "main+hotfix", expected: false},
		{name: "remote_prefix_only", branch: "origin/release/1.0", expected: false},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &stubGitExecutor{responses: []stubGitResponse{output(references)}}
			created, branchError := NewBackend(executor, Options{}).IsBranchCreated(context.Background(), "/workspace/api", testCase.branch)
			require.NoError(testInstance, branchError)
			require.Equal(testInstance, testCase.expected, created)
		})
	}
}

func TestMutationsIssueExpectedCommands(testInstance *testing.T) {
	testCases := []struct {
		name              string
		invoke            func(backend *Backend) error
		expectedArguments []string
	}{
		{
			name: "create_branch",
			invoke: func(backend *Backend) error {
				_, err := backend.CreateBranch(context.Background(), "/workspace/api", "main+hotfix")
				return err
			},
			expectedArguments: []string{"checkout", "-b", "main+hotfix"},
		},
		{
			name: "create_tag",
			invoke: func(backend *Backend) error {
				_, err := backend.CreateTag(context.Background(), "/workspace/api", "v1.2.0")
				return err
			},
			expectedArguments: []string{"tag", "v1.2.0"},
		},
		{
			name: "checkout",
			invoke: func(backend *Backend) error {
				_, err := backend.Checkout(context.Background(), "/workspace/api", "release")
				return err
			},
			expectedArguments: []string{"checkout", "release"},
		},
		{
			name: "merge",
			invoke: func(backend *Backend) error {
				_, err := backend.Merge(context.Background(), "/workspace/api", "feature")
				return err
			},
			expectedArguments: []string{"merge", "--no-edit", "feature"},
		},
		{
			name: "status",
			invoke: func(backend *Backend) error {
				_, err := backend.GetStatus(context.Background(), "/workspace/api")
				return err
			},
			expectedArguments: []string{"status"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &stubGitExecutor{}
			require.NoError(testInstance, testCase.invoke(NewBackend(executor, Options{})))
			require.Len(testInstance, executor.recorded, 1)
			require.Equal(testInstance, testCase.expectedArguments, executor.recorded[0].Arguments)
			require.Equal(testInstance, "/workspace/api", executor.recorded[0].WorkingDirectory)
		})
	}
}

func TestCloneCreatesParentAndRunsFromIt(testInstance *testing.T) {
	workspaceDirectory := testInstance.TempDir()
	destination := filepath.Join(workspaceDirectory, "services", "api")
	executor := &stubGitExecutor{}

	_, cloneError := NewBackend(executor, Options{}).Clone(context.Background(), destination, "https://example.com/api.git")
	require.NoError(testInstance, cloneError)

	require.DirExists(testInstance, filepath.Join(workspaceDirectory, "services"))
	require.Equal(testInstance, []string{"clone", "https://example.com/api.git", destination}, executor.recorded[0].Arguments)
	require.Equal(testInstance, filepath.Join(workspaceDirectory, "services"), executor.recorded[0].WorkingDirectory)
}

func TestFailuresCarryDiagnostics(testInstance *testing.T) {
	executor := &stubGitExecutor{responses: []stubGitResponse{exitFailure(128, "fatal: repository not found\n")}}

	_, cloneError := NewBackend(executor, Options{}).Clone(context.Background(), filepath.Join(testInstance.TempDir(), "api"), "https://example.com/missing.git")

	var failure *faults.Error
	require.True(testInstance, errors.As(cloneError, &failure))
	require.Equal(testInstance, faults.KindBackendOperation, failure.Kind)
	require.Equal(testInstance, 128, failure.ExitCode)
	require.Equal(testInstance, "fatal: repository not found\n", failure.Diagnostic)
	require.Equal(testInstance, "https://example.com/missing.git", failure.URL)
}

func TestCommandTimeoutBoundsInvocations(testInstance *testing.T) {
	executor := &stubGitExecutor{}
	_, statusError := NewBackend(executor, Options{CommandTimeout: time.Minute}).GetStatus(context.Background(), "/workspace/api")
	require.NoError(testInstance, statusError)
	require.Equal(testInstance, []bool{true}, executor.deadlines)

	unboundedExecutor := &stubGitExecutor{}
	_, statusError = NewBackend(unboundedExecutor, Options{}).GetStatus(context.Background(), "/workspace/api")
	require.NoError(testInstance, statusError)
	require.Equal(testInstance, []bool{false}, unboundedExecutor.deadlines)
}

// Package pathutils resolves user-supplied directories for the CLI.
package pathutils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	tildeSymbolConstant                   = "~"
	currentDirectoryConstant              = "."
	homeDirectoryErrorTemplateConstant    = "unable to resolve home directory: %w"
	absolutePathErrorTemplateConstant     = "unable to resolve workspace root %s: %w"
	workingDirectoryErrorTemplateConstant = "unable to resolve working directory: %w"
)

// DirectoryProvider returns a directory such as the user's home or the process working directory.
type DirectoryProvider func() (string, error)

// WorkspaceRootResolver turns the configured workspace root into an absolute directory.
type WorkspaceRootResolver struct {
	homeDirectoryProvider    DirectoryProvider
	workingDirectoryProvider DirectoryProvider
}

// NewWorkspaceRootResolver constructs a resolver backed by the operating system.
func NewWorkspaceRootResolver() *WorkspaceRootResolver {
	return NewWorkspaceRootResolverWithProviders(os.UserHomeDir, os.Getwd)
}

// NewWorkspaceRootResolverWithProviders constructs a resolver with custom lookups.
func NewWorkspaceRootResolverWithProviders(homeDirectoryProvider DirectoryProvider, workingDirectoryProvider DirectoryProvider) *WorkspaceRootResolver {
	if homeDirectoryProvider == nil {
		homeDirectoryProvider = os.UserHomeDir
	}
	if workingDirectoryProvider == nil {
		workingDirectoryProvider = os.Getwd
	}
	return &WorkspaceRootResolver{homeDirectoryProvider: homeDirectoryProvider, workingDirectoryProvider: workingDirectoryProvider}
}

// Resolve returns the workspace root. An explicit configuredRoot is expanded
// (leading ~) and made absolute. An empty or "." root selects the nearest
// directory, starting at the working directory and moving up, that contains
// manifestDirectoryName; the working directory itself when none does.
func (resolver *WorkspaceRootResolver) Resolve(configuredRoot string, manifestDirectoryName string) (string, error) {
	trimmedRoot := strings.TrimSpace(configuredRoot)
	if len(trimmedRoot) > 0 && trimmedRoot != currentDirectoryConstant {
		expandedRoot, expansionError := resolver.expandHome(trimmedRoot)
		if expansionError != nil {
			return "", expansionError
		}
		absoluteRoot, absoluteError := filepath.Abs(expandedRoot)
		if absoluteError != nil {
			return "", fmt.Errorf(absolutePathErrorTemplateConstant, trimmedRoot, absoluteError)
		}
		return absoluteRoot, nil
	}

	workingDirectory, workingDirectoryError := resolver.workingDirectoryProvider()
	if workingDirectoryError != nil {
		return "", fmt.Errorf(workingDirectoryErrorTemplateConstant, workingDirectoryError)
	}
	for candidate := filepath.Clean(workingDirectory); ; candidate = filepath.Dir(candidate) {
		fileInfo, statError := os.Stat(filepath.Join(candidate, manifestDirectoryName))
		if statError == nil && fileInfo.IsDir() {
			return candidate, nil
		}
		if statError != nil && !errors.Is(statError, fs.ErrNotExist) {
			return "", statError
		}
		if filepath.Dir(candidate) == candidate {
			return filepath.Clean(workingDirectory), nil
		}
	}
}

func (resolver *WorkspaceRootResolver) expandHome(candidatePath string) (string, error) {
	if candidatePath != tildeSymbolConstant && !strings.HasPrefix(candidatePath, tildeSymbolConstant+"/") && !strings.HasPrefix(candidatePath, tildeSymbolConstant+string(os.PathSeparator)) {
		return candidatePath, nil
	}
	homeDirectory, homeError := resolver.homeDirectoryProvider()
	if homeError != nil {
		return "", fmt.Errorf(homeDirectoryErrorTemplateConstant, homeError)
	}
	return filepath.Join(homeDirectory, candidatePath[len(tildeSymbolConstant):]), nil
}

package workspace

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

const hiddenEntryPrefixConstant = "."

// FilesystemRepositoryDiscoverer walks a workspace and returns every directory a
// backend considers likely to be a repository. It does not descend into a
// repository once found, and skips hidden directories such as the manifest directory.
type FilesystemRepositoryDiscoverer struct {
	isRepositoryLikely    func(directory string) bool
	manifestDirectoryName string
}

// NewFilesystemRepositoryDiscoverer constructs a discoverer backed by filepath.WalkDir.
func NewFilesystemRepositoryDiscoverer(isRepositoryLikely func(directory string) bool, manifestDirectoryName string) *FilesystemRepositoryDiscoverer {
	return &FilesystemRepositoryDiscoverer{isRepositoryLikely: isRepositoryLikely, manifestDirectoryName: manifestDirectoryName}
}

// DiscoverRepositories walks rootDirectory. The root itself is never reported.
func (discoverer *FilesystemRepositoryDiscoverer) DiscoverRepositories(rootDirectory string) ([]string, error) {
	var repositories []string

	walkError := filepath.WalkDir(rootDirectory, func(path string, directoryEntry fs.DirEntry, walkError error) error {
		if walkError != nil {
			if path == rootDirectory {
				return walkError
			}
			return nil
		}
		if !directoryEntry.IsDir() || path == rootDirectory {
			return nil
		}

		entryName := directoryEntry.Name()
		if entryName == discoverer.manifestDirectoryName || strings.HasPrefix(entryName, hiddenEntryPrefixConstant) {
			return fs.SkipDir
		}

		if discoverer.isRepositoryLikely(path) {
			repositories = append(repositories, path)
			return fs.SkipDir
		}
		return nil
	})
	if walkError != nil {
		return nil, walkError
	}

	sort.Strings(repositories)
	return repositories, nil
}

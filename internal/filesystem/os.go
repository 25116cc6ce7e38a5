// Package filesystem exposes the filesystem operations used by the manifest
// store and the workspace service behind an interface that tests can replace.
package filesystem

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	temporaryFilePatternTemplateConstant      = ".%s.tmp-*"
	parentDirectoryPermissionsConstant        = 0o755
	parentCreationErrorTemplateConstant       = "failed to create parent directory: %w"
	temporaryCreationErrorTemplateConstant    = "failed to create temporary file: %w"
	temporaryWriteErrorTemplateConstant       = "failed to write temporary file: %w"
	temporarySyncErrorTemplateConstant        = "failed to sync temporary file: %w"
	temporaryCloseErrorTemplateConstant       = "failed to close temporary file: %w"
	temporaryPermissionsErrorTemplateConstant = "failed to set permissions: %w"
	temporaryRenameErrorTemplateConstant      = "failed to rename temporary file: %w"
)

// FileSystem lists the operations required by workspace services.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	ReadFile(path string) ([]byte, error)
	ReadDir(path string) ([]fs.DirEntry, error)
	// AtomicWriteFile replaces path so readers observe either the old or the new content.
	AtomicWriteFile(path string, data []byte, permissions fs.FileMode) error
	MkdirAll(path string, permissions fs.FileMode) error
	Remove(path string) error
}

// OSFileSystem implements FileSystem using the operating system primitives.
type OSFileSystem struct{}

// Stat retrieves file metadata.
func (OSFileSystem) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// ReadFile reads file contents.
func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// ReadDir lists directory entries sorted by name.
func (OSFileSystem) ReadDir(path string) ([]fs.DirEntry, error) {
	return os.ReadDir(path)
}

// MkdirAll ensures a directory hierarchy exists with the provided permissions.
func (OSFileSystem) MkdirAll(path string, permissions fs.FileMode) error {
	return os.MkdirAll(path, permissions)
}

// Remove deletes a file or an empty directory.
func (OSFileSystem) Remove(path string) error {
	return os.Remove(path)
}

// AtomicWriteFile writes data to a temporary sibling of path and renames it into place.
func (OSFileSystem) AtomicWriteFile(path string, data []byte, permissions fs.FileMode) error {
	parentDirectory := filepath.Dir(path)
	if creationError := os.MkdirAll(parentDirectory, parentDirectoryPermissionsConstant); creationError != nil {
		return fmt.Errorf(parentCreationErrorTemplateConstant, creationError)
	}

	temporaryFile, temporaryError := os.CreateTemp(parentDirectory, fmt.Sprintf(temporaryFilePatternTemplateConstant, filepath.Base(path)))
	if temporaryError != nil {
		return fmt.Errorf(temporaryCreationErrorTemplateConstant, temporaryError)
	}
	temporaryPath := temporaryFile.Name()

	committed := false
	defer func() {
		if committed {
			return
		}
		_ = temporaryFile.Close()
		_ = os.Remove(temporaryPath)
	}()

	if _, writeError := temporaryFile.Write(data); writeError != nil {
		return fmt.Errorf(temporaryWriteErrorTemplateConstant, writeError)
	}
	if syncError := temporaryFile.Sync(); syncError != nil {
		return fmt.Errorf(temporarySyncErrorTemplateConstant, syncError)
	}
	if closeError := temporaryFile.Close(); closeError != nil {
		return fmt.Errorf(temporaryCloseErrorTemplateConstant, closeError)
	}
	if permissionsError := os.Chmod(temporaryPath, permissions); permissionsError != nil {
		return fmt.Errorf(temporaryPermissionsErrorTemplateConstant, permissionsError)
	}
	if renameError := os.Rename(temporaryPath, path); renameError != nil {
		return fmt.Errorf(temporaryRenameErrorTemplateConstant, renameError)
	}

	committed = true
	return nil
}

package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/temirov/wsm/internal/faults"
	"github.com/temirov/wsm/internal/filesystem"
)

const (
	// DefaultDirectoryName is the workspace-relative directory holding manifests.
	DefaultDirectoryName = ".manifest"

	currentFileNameConstant                 = "current"
	referenceDirectoryNameConstant          = "ref"
	manifestFileExtensionConstant           = ".yaml"
	manifestFilePermissionsConstant         = 0o644
	directoryPermissionsConstant            = 0o755
	manifestNotFoundTemplateConstant        = "manifest %s not found"
	noCurrentManifestMessageConstant        = "no current manifest is selected"
	workspaceNotInitializedTemplateConstant = "workspace %s is not initialized; run init first"
	invalidManifestNameTemplateConstant     = "invalid manifest name %q"
	readManifestErrorTemplateConstant       = "unable to read manifest %s: %w"
	parseManifestErrorTemplateConstant      = "unable to parse manifest %s: %w"
	encodeManifestErrorTemplateConstant     = "unable to encode manifest %s: %w"
	writeManifestErrorTemplateConstant      = "unable to write manifest %s: %w"
	deleteManifestErrorTemplateConstant     = "unable to delete manifest %s: %w"
	readCurrentErrorTemplateConstant        = "unable to read current manifest name: %w"
	writeCurrentErrorTemplateConstant       = "unable to record current manifest name: %w"
	listManifestsErrorTemplateConstant      = "unable to list manifests: %w"
	initializeErrorTemplateConstant         = "unable to initialize manifest directory: %w"
	lineTerminatorConstant                  = "\n"
)

// Store persists manifests under <workspace>/.manifest.
type Store struct {
	manifestDirectory string
	fileSystem        filesystem.FileSystem
}

// NewStore constructs a store rooted at manifestDirectory.
func NewStore(manifestDirectory string, fileSystem filesystem.FileSystem) *Store {
	if fileSystem == nil {
		fileSystem = filesystem.OSFileSystem{}
	}
	return &Store{manifestDirectory: manifestDirectory, fileSystem: fileSystem}
}

// Directory returns the manifest directory.
func (store *Store) Directory() string {
	return store.manifestDirectory
}

// ReferenceDirectory returns the directory holding named manifests.
func (store *Store) ReferenceDirectory() string {
	return filepath.Join(store.manifestDirectory, referenceDirectoryNameConstant)
}

// Initialized reports whether the reference directory exists.
func (store *Store) Initialized() bool {
	fileInfo, statError := store.fileSystem.Stat(store.ReferenceDirectory())
	return statError == nil && fileInfo.IsDir()
}

// Initialize creates the reference directory.
func (store *Store) Initialize() error {
	if creationError := store.fileSystem.MkdirAll(store.ReferenceDirectory(), directoryPermissionsConstant); creationError != nil {
		return fmt.Errorf(initializeErrorTemplateConstant, creationError)
	}
	return nil
}

// ValidateName rejects names that are empty, absolute, or escape the reference directory.
func ValidateName(name string) error {
	trimmedName := strings.TrimSpace(name)
	if len(trimmedName) == 0 || trimmedName != name || strings.HasPrefix(name, pathSeparatorConstant) || strings.Contains(name, windowsPathSeparatorConstant) {
		return fmt.Errorf(invalidManifestNameTemplateConstant, name)
	}
	for _, segment := range strings.Split(name, pathSeparatorConstant) {
		if len(segment) == 0 || segment == currentDirectorySegmentConstant || segment == parentDirectorySegmentConstant {
			return fmt.Errorf(invalidManifestNameTemplateConstant, name)
		}
	}
	return nil
}

// ReadCurrentName returns the name of the active manifest.
func (store *Store) ReadCurrentName() (string, error) {
	content, readError := store.fileSystem.ReadFile(store.currentFilePath())
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			if !store.Initialized() {
				return "", faults.Newf(faults.KindWorkspaceNotInitialized, workspaceNotInitializedTemplateConstant, filepath.Dir(store.manifestDirectory))
			}
			return "", faults.New(faults.KindManifestNotFound, noCurrentManifestMessageConstant).WithCause(readError)
		}
		return "", fmt.Errorf(readCurrentErrorTemplateConstant, readError)
	}

	currentName := strings.TrimSpace(string(content))
	if len(currentName) == 0 {
		return "", faults.New(faults.KindManifestNotFound, noCurrentManifestMessageConstant)
	}
	return currentName, nil
}

// WriteCurrentName records the active manifest.
func (store *Store) WriteCurrentName(name string) error {
	if validationError := ValidateName(name); validationError != nil {
		return validationError
	}
	if writeError := store.fileSystem.AtomicWriteFile(store.currentFilePath(), []byte(name+lineTerminatorConstant), manifestFilePermissionsConstant); writeError != nil {
		return fmt.Errorf(writeCurrentErrorTemplateConstant, writeError)
	}
	return nil
}

// Exists reports whether a manifest named name is stored.
func (store *Store) Exists(name string) bool {
	if ValidateName(name) != nil {
		return false
	}
	fileInfo, statError := store.fileSystem.Stat(store.manifestFilePath(name))
	return statError == nil && !fileInfo.IsDir()
}

// Read loads the manifest named name.
func (store *Store) Read(name string) (*Manifest, error) {
	if validationError := ValidateName(name); validationError != nil {
		return nil, validationError
	}

	content, readError := store.fileSystem.ReadFile(store.manifestFilePath(name))
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return nil, faults.Newf(faults.KindManifestNotFound, manifestNotFoundTemplateConstant, name).WithCause(readError)
		}
		return nil, fmt.Errorf(readManifestErrorTemplateConstant, name, readError)
	}

	return Parse(name, content)
}

// Parse decodes manifest content.
func Parse(name string, content []byte) (*Manifest, error) {
	manifest := New(name)
	if decodeError := yaml.Unmarshal(content, manifest); decodeError != nil {
		return nil, fmt.Errorf(parseManifestErrorTemplateConstant, name, decodeError)
	}
	manifest.Name = name
	return manifest, nil
}

// Write persists manifest under name, replacing any previous content atomically.
func (store *Store) Write(name string, manifest *Manifest) error {
	if validationError := ValidateName(name); validationError != nil {
		return validationError
	}

	content, encodeError := yaml.Marshal(manifest)
	if encodeError != nil {
		return fmt.Errorf(encodeManifestErrorTemplateConstant, name, encodeError)
	}

	if writeError := store.fileSystem.AtomicWriteFile(store.manifestFilePath(name), content, manifestFilePermissionsConstant); writeError != nil {
		return fmt.Errorf(writeManifestErrorTemplateConstant, name, writeError)
	}
	return nil
}

// Delete removes the manifest named name. Protecting the current manifest is the caller's concern.
func (store *Store) Delete(name string) error {
	if validationError := ValidateName(name); validationError != nil {
		return validationError
	}

	if removeError := store.fileSystem.Remove(store.manifestFilePath(name)); removeError != nil {
		if errors.Is(removeError, fs.ErrNotExist) {
			return faults.Newf(faults.KindManifestNotFound, manifestNotFoundTemplateConstant, name).WithCause(removeError)
		}
		return fmt.Errorf(deleteManifestErrorTemplateConstant, name, removeError)
	}
	return nil
}

// List returns stored manifest names in lexicographic order.
func (store *Store) List() ([]string, error) {
	names := make([]string, 0)
	if listError := store.collectNames(store.ReferenceDirectory(), "", &names); listError != nil {
		if errors.Is(listError, fs.ErrNotExist) {
			return names, nil
		}
		return nil, fmt.Errorf(listManifestsErrorTemplateConstant, listError)
	}
	sort.Strings(names)
	return names, nil
}

func (store *Store) collectNames(directory string, prefix string, names *[]string) error {
	entries, readError := store.fileSystem.ReadDir(directory)
	if readError != nil {
		return readError
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if collectError := store.collectNames(filepath.Join(directory, entry.Name()), path.Join(prefix, entry.Name()), names); collectError != nil {
				return collectError
			}
			continue
		}
		baseName, isManifest := strings.CutSuffix(entry.Name(), manifestFileExtensionConstant)
		if !isManifest || strings.HasPrefix(entry.Name(), currentDirectorySegmentConstant) {
			continue
		}
		*names = append(*names, path.Join(prefix, baseName))
	}
	return nil
}

func (store *Store) currentFilePath() string {
	return filepath.Join(store.manifestDirectory, currentFileNameConstant)
}

func (store *Store) manifestFilePath(name string) string {
	return filepath.Join(store.ReferenceDirectory(), filepath.FromSlash(name)+manifestFileExtensionConstant)
}

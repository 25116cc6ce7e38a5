package workspace

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/wsm/internal/faults"
	"github.com/temirov/wsm/internal/manifest"
)

const (
	// OperationInit names the init report.
	OperationInit = "init"
	// InitSourceWorkspace initializes the workspace from the repositories already on disk.
	InitSourceWorkspace = "."
	// DefaultManifestName is the manifest made current when a source offers no better choice.
	DefaultManifestName = "main"

	manifestRepositorySuffixConstant        = ".git"
	manifestFileExtensionConstant           = ".yaml"
	temporaryDirectoryPatternConstant       = "wsm-manifests-*"
	manifestCloneDirectoryNameConstant      = "manifests"
	workspaceIsRepositoryMessageConstant    = "workspace root is itself a repository"
	workspaceAlreadyInitializedTemplate     = "workspace %s is already initialized"
	manifestRepositoryEmptyTemplateConstant = "manifest repository %s contains no manifests"
	manifestBackendMissingTemplateConstant  = "backend %s is not registered"
	temporaryDirectoryErrorTemplateConstant = "unable to create temporary directory: %w"
	readManifestRepositoryTemplateConstant  = "unable to read manifest repository %s: %w"
	manifestURLParseTemplateConstant        = "invalid manifest url %s: %w"
	manifestsImportedMessageConstant        = "manifests imported"
	logFieldManifestCountConstant           = "manifest_count"
	logFieldSourceConstant                  = "source"
)

// InitResult describes an initialized workspace.
type InitResult struct {
	State     State
	Manifests []string
	Report    Report
}

// Init prepares the manifest directory of an uninitialized workspace. The source
// selects the variant: InitSourceWorkspace records the repositories already
// present as DefaultManifestName; a URL ending in .git is cloned as a manifest
// repository whose *.yaml files become the stored manifests; any other URL is
// downloaded as a single manifest and checked out.
func (service *Service) Init(executionContext context.Context, source string) (InitResult, error) {
	if service.registry.IsLikely(service.rootDirectory) {
		return InitResult{}, faults.New(faults.KindWorkspaceAlreadyInitialized, workspaceIsRepositoryMessageConstant).WithPath(service.rootDirectory)
	}
	if service.store.Initialized() {
		return InitResult{}, faults.Newf(faults.KindWorkspaceAlreadyInitialized, workspaceAlreadyInitializedTemplate, service.rootDirectory)
	}

	switch {
	case source == InitSourceWorkspace:
		return service.initFromWorkspace(executionContext)
	case strings.HasSuffix(source, manifestRepositorySuffixConstant):
		return service.initFromRepository(executionContext, source)
	default:
		return service.initFromDocument(executionContext, source)
	}
}

func (service *Service) initFromWorkspace(executionContext context.Context) (InitResult, error) {
	if initializeError := service.store.Initialize(); initializeError != nil {
		return InitResult{}, initializeError
	}
	state, report, createError := service.Create(executionContext, DefaultManifestName)
	if createError != nil {
		return InitResult{}, createError
	}
	report.Operation = OperationInit
	return InitResult{State: state, Manifests: []string{DefaultManifestName}, Report: report}, nil
}

func (service *Service) initFromRepository(executionContext context.Context, repositoryURL string) (InitResult, error) {
	backend, registered := service.registry.Lookup(service.manifestRepositoryBackend)
	if !registered {
		return InitResult{}, faults.Newf(faults.KindBackendUnavailable, manifestBackendMissingTemplateConstant, service.manifestRepositoryBackend)
	}

	temporaryDirectory, temporaryError := os.MkdirTemp("", temporaryDirectoryPatternConstant)
	if temporaryError != nil {
		return InitResult{}, fmt.Errorf(temporaryDirectoryErrorTemplateConstant, temporaryError)
	}
	defer os.RemoveAll(temporaryDirectory)

	cloneDirectory := filepath.Join(temporaryDirectory, manifestCloneDirectoryNameConstant)
	if _, cloneError := backend.Clone(executionContext, cloneDirectory, repositoryURL); cloneError != nil {
		return InitResult{}, cloneError
	}

	manifests, collectError := service.collectManifests(cloneDirectory)
	if collectError != nil {
		return InitResult{}, fmt.Errorf(readManifestRepositoryTemplateConstant, repositoryURL, collectError)
	}
	if len(manifests) == 0 {
		return InitResult{}, faults.Newf(faults.KindManifestNotFound, manifestRepositoryEmptyTemplateConstant, repositoryURL).WithURL(repositoryURL)
	}

	if initializeError := service.store.Initialize(); initializeError != nil {
		return InitResult{}, initializeError
	}
	names := make([]string, 0, len(manifests))
	for _, importedManifest := range manifests {
		if writeError := service.store.Write(importedManifest.Name, importedManifest); writeError != nil {
			return InitResult{}, writeError
		}
		names = append(names, importedManifest.Name)
	}
	sort.Strings(names)

	currentName := names[0]
	for _, name := range names {
		if name == DefaultManifestName {
			currentName = name
		}
	}
	if switchError := service.store.WriteCurrentName(currentName); switchError != nil {
		return InitResult{}, switchError
	}

	service.logger.Info(manifestsImportedMessageConstant, zap.String(logFieldSourceConstant, repositoryURL), zap.Int(logFieldManifestCountConstant, len(names)))
	state := State{RootDirectory: service.rootDirectory, CurrentManifestName: currentName}
	return InitResult{State: state, Manifests: names, Report: Report{Operation: OperationInit, ManifestName: currentName}}, nil
}

// collectManifests parses the top-level *.yaml files of directory.
func (service *Service) collectManifests(directory string) ([]*manifest.Manifest, error) {
	directoryEntries, readError := service.fileSystem.ReadDir(directory)
	if readError != nil {
		return nil, readError
	}

	manifests := make([]*manifest.Manifest, 0, len(directoryEntries))
	for _, directoryEntry := range directoryEntries {
		if directoryEntry.IsDir() || filepath.Ext(directoryEntry.Name()) != manifestFileExtensionConstant {
			continue
		}
		content, contentError := service.fileSystem.ReadFile(filepath.Join(directory, directoryEntry.Name()))
		if contentError != nil {
			return nil, contentError
		}
		parsedManifest, parseError := manifest.Parse(strings.TrimSuffix(directoryEntry.Name(), manifestFileExtensionConstant), content)
		if parseError != nil {
			return nil, parseError
		}
		manifests = append(manifests, parsedManifest)
	}
	return manifests, nil
}

func (service *Service) initFromDocument(executionContext context.Context, manifestURL string) (InitResult, error) {
	name, nameError := ManifestNameFromURL(manifestURL)
	if nameError != nil {
		return InitResult{}, nameError
	}

	content, fetchError := service.fetcher.Fetch(executionContext, manifestURL)
	if fetchError != nil {
		return InitResult{}, fetchError
	}
	downloadedManifest, parseError := manifest.Parse(name, content)
	if parseError != nil {
		return InitResult{}, parseError
	}

	if initializeError := service.store.Initialize(); initializeError != nil {
		return InitResult{}, initializeError
	}
	if writeError := service.store.Write(name, downloadedManifest); writeError != nil {
		return InitResult{}, writeError
	}
	// A failed checkout leaves an initialized workspace that checkout can retry.
	if switchError := service.store.WriteCurrentName(name); switchError != nil {
		return InitResult{}, switchError
	}

	state, report, checkoutError := service.Checkout(executionContext, State{RootDirectory: service.rootDirectory}, name)
	if checkoutError != nil {
		return InitResult{}, checkoutError
	}
	report.Operation = OperationInit
	return InitResult{State: state, Manifests: []string{name}, Report: report}, nil
}

// ManifestNameFromURL derives the manifest name from the last path element of
// manifestURL without its extension, or DefaultManifestName when there is none.
func ManifestNameFromURL(manifestURL string) (string, error) {
	parsedURL, parseError := url.Parse(manifestURL)
	if parseError != nil {
		return "", fmt.Errorf(manifestURLParseTemplateConstant, manifestURL, parseError)
	}
	if len(parsedURL.Path) == 0 || strings.HasSuffix(parsedURL.Path, "/") {
		return DefaultManifestName, nil
	}
	baseName := path.Base(parsedURL.Path)
	name := strings.TrimSuffix(baseName, path.Ext(baseName))
	if len(name) == 0 {
		return DefaultManifestName, nil
	}
	return name, nil
}

package workspace

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/temirov/wsm/internal/faults"
	"github.com/temirov/wsm/internal/manifest"
	"github.com/temirov/wsm/internal/orchestrator"
	"github.com/temirov/wsm/internal/vcs"
)

const (
	// OperationCreate names the create report.
	OperationCreate = "create"

	currentManifestDeletionTemplateConstant = "manifest %s is the current manifest"
	repositoryAlreadyManagedMessageConstant = "repository is already part of the current manifest"
	pathOutsideWorkspaceMessageConstant     = "path is outside the workspace"
	discoveryFailedTemplateConstant         = "unable to discover repositories under %s: %w"
	repositorySkippedMessageConstant        = "skipping directory that no backend recognizes"
	repositoryAddedMessageConstant          = "repository added to manifest"
	manifestDeletedMessageConstant          = "manifest deleted"
	logFieldRepositoryPathConstant          = "repository_path"
)

// Create discovers every repository under the workspace root, records it in a
// manifest called name and makes that manifest current. Directories no backend
// confirms are reported and left out of the manifest.
func (service *Service) Create(executionContext context.Context, name string) (State, Report, error) {
	if nameError := manifest.ValidateName(name); nameError != nil {
		return State{}, Report{}, nameError
	}
	if !service.store.Initialized() {
		return State{}, Report{}, faults.Newf(faults.KindWorkspaceNotInitialized, workspaceNotInitializedTemplateConstant, service.rootDirectory)
	}

	directories, discoveryError := service.discoverer.DiscoverRepositories(service.rootDirectory)
	if discoveryError != nil {
		return State{}, Report{}, fmt.Errorf(discoveryFailedTemplateConstant, service.rootDirectory, discoveryError)
	}

	createdManifest := manifest.New(name)
	results := make(orchestrator.Results, 0, len(directories))
	for _, directory := range directories {
		repositoryPath, pathError := service.relativePath(directory)
		if pathError != nil {
			return State{}, Report{}, pathError
		}

		identification, identifyError := service.registry.Identify(executionContext, directory)
		if identifyError != nil {
			service.logger.Warn(repositorySkippedMessageConstant, zap.String(logFieldRepositoryPathConstant, repositoryPath), zap.Error(identifyError))
			results = append(results, orchestrator.RepositoryResult{
				Path:       repositoryPath,
				Fault:      orchestrator.NewFault(repositoryPath, "", identifyError),
				Unresolved: true,
			})
			continue
		}

		if setError := createdManifest.Set(manifest.Entry{Path: repositoryPath, URL: identification.URL, Ref: identification.Ref, VCS: identification.VCS}); setError != nil {
			return State{}, Report{}, setError
		}
		results = append(results, orchestrator.RepositoryResult{Path: repositoryPath, Output: vcs.Output{StandardOutput: identification.URL, Reference: identification.Ref}})
	}

	if writeError := service.store.Write(name, createdManifest); writeError != nil {
		return State{}, Report{}, writeError
	}
	if switchError := service.store.WriteCurrentName(name); switchError != nil {
		return State{}, Report{}, switchError
	}

	state := State{RootDirectory: service.rootDirectory, CurrentManifestName: name}
	return state, service.finish(Report{Operation: OperationCreate, ManifestName: name, Results: results}), nil
}

// Add records the repository at directory in the current manifest. Relative
// directories are interpreted against the workspace root.
func (service *Service) Add(executionContext context.Context, state State, directory string) (manifest.Entry, error) {
	if !filepath.IsAbs(directory) {
		directory = filepath.Join(service.rootDirectory, directory)
	}
	repositoryPath, pathError := service.relativePath(directory)
	if pathError != nil {
		return manifest.Entry{}, pathError
	}

	currentManifest, readError := service.readCurrent(state)
	if readError != nil {
		return manifest.Entry{}, readError
	}
	if currentManifest.Has(repositoryPath) {
		return manifest.Entry{}, faults.New(faults.KindRepositoryAlreadyManaged, repositoryAlreadyManagedMessageConstant).WithPath(repositoryPath)
	}

	identification, identifyError := service.registry.Identify(executionContext, filepath.Clean(directory))
	if identifyError != nil {
		return manifest.Entry{}, identifyError
	}

	entry := manifest.Entry{Path: repositoryPath, URL: identification.URL, Ref: identification.Ref, VCS: identification.VCS}
	if setError := currentManifest.Set(entry); setError != nil {
		return manifest.Entry{}, setError
	}
	if writeError := service.store.Write(state.CurrentManifestName, currentManifest); writeError != nil {
		return manifest.Entry{}, writeError
	}

	service.logger.Info(repositoryAddedMessageConstant, zap.String(logFieldRepositoryPathConstant, repositoryPath), zap.String(logFieldManifestNameConstant, state.CurrentManifestName))
	return entry, nil
}

// Delete removes a stored manifest other than the current one.
func (service *Service) Delete(state State, name string) error {
	if name == state.CurrentManifestName {
		return faults.Newf(faults.KindCannotDeleteCurrentManifest, currentManifestDeletionTemplateConstant, name)
	}
	if deleteError := service.store.Delete(name); deleteError != nil {
		return deleteError
	}
	service.logger.Info(manifestDeletedMessageConstant, zap.String(logFieldManifestNameConstant, name))
	return nil
}

// ManifestListing describes one stored manifest.
type ManifestListing struct {
	Name    string
	Current bool
}

// List returns the stored manifests in name order.
func (service *Service) List(state State) ([]ManifestListing, error) {
	names, listError := service.store.List()
	if listError != nil {
		return nil, listError
	}
	listings := make([]ManifestListing, 0, len(names))
	for _, name := range names {
		listings = append(listings, ManifestListing{Name: name, Current: name == state.CurrentManifestName})
	}
	return listings, nil
}

func (service *Service) relativePath(directory string) (string, error) {
	relativePath, relativeError := filepath.Rel(service.rootDirectory, filepath.Clean(directory))
	if relativeError != nil {
		return "", faults.New(faults.KindPathOutsideWorkspace, pathOutsideWorkspaceMessageConstant).WithPath(directory).WithCause(relativeError)
	}
	repositoryPath, normalizeError := manifest.NormalizePath(relativePath)
	if normalizeError != nil {
		return "", faults.New(faults.KindPathOutsideWorkspace, pathOutsideWorkspaceMessageConstant).WithPath(directory).WithCause(normalizeError)
	}
	return repositoryPath, nil
}

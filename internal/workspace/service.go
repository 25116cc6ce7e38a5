package workspace

import (
	"context"
	"errors"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/temirov/wsm/internal/execshell"
	"github.com/temirov/wsm/internal/filesystem"
	"github.com/temirov/wsm/internal/manifest"
	"github.com/temirov/wsm/internal/orchestrator"
	"github.com/temirov/wsm/internal/vcs"
	"github.com/temirov/wsm/internal/vcs/git"
)

const (
	registryNotConfiguredMessageConstant     = "workspace service requires a backend registry"
	rootNotConfiguredMessageConstant         = "workspace service requires a root directory"
	workspaceNotInitializedTemplateConstant  = "workspace %s is not initialized; run init first"
	logFieldWorkspaceRootConstant            = "workspace_root"
	logFieldManifestNameConstant             = "manifest"
	logFieldOperationConstant                = "operation"
	logFieldRepositoryCountConstant          = "repository_count"
	logFieldFailureCountConstant             = "failure_count"
	operationCompletedMessageConstant        = "workspace operation completed"
	defaultManifestRepositoryBackendConstant = git.BackendName
)

// ErrRegistryNotConfigured indicates that the service was constructed without backends.
var ErrRegistryNotConfigured = errors.New(registryNotConfiguredMessageConstant)

// ErrRootNotConfigured indicates that the service was constructed without a workspace root.
var ErrRootNotConfigured = errors.New(rootNotConfiguredMessageConstant)

// CommandExecutor runs arbitrary commands for exec. *execshell.ShellExecutor satisfies it.
type CommandExecutor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// ManifestFetcher downloads manifest content.
type ManifestFetcher interface {
	Fetch(executionContext context.Context, manifestURL string) ([]byte, error)
}

// RepositoryDiscoverer lists candidate repository directories under a root.
type RepositoryDiscoverer interface {
	DiscoverRepositories(rootDirectory string) ([]string, error)
}

// Dependencies holds the collaborators of a Service. Nil collaborators are
// replaced with operating system defaults, except Registry which is required.
type Dependencies struct {
	Logger     *zap.Logger
	FileSystem filesystem.FileSystem
	Registry   *vcs.Registry
	Executor   CommandExecutor
	Fetcher    ManifestFetcher
	Discoverer RepositoryDiscoverer
}

// Options configures a Service.
type Options struct {
	RootDirectory         string
	ManifestDirectoryName string
	Workers               int
	// ManifestRepositoryBackend names the backend that clones manifest repositories; git by default.
	ManifestRepositoryBackend string
}

// State is the workspace state every command operates on.
type State struct {
	RootDirectory       string
	CurrentManifestName string
}

// Report is the aggregated outcome of a multi-repository operation.
type Report struct {
	Operation    string
	ManifestName string
	Results      orchestrator.Results
}

// Service executes workspace commands.
type Service struct {
	rootDirectory             string
	logger                    *zap.Logger
	fileSystem                filesystem.FileSystem
	registry                  *vcs.Registry
	executor                  CommandExecutor
	fetcher                   ManifestFetcher
	discoverer                RepositoryDiscoverer
	store                     *manifest.Store
	orchestrator              *orchestrator.Orchestrator
	manifestRepositoryBackend string
}

// NewService constructs a Service bound to a workspace root.
func NewService(dependencies Dependencies, options Options) (*Service, error) {
	if dependencies.Registry == nil {
		return nil, ErrRegistryNotConfigured
	}
	if len(options.RootDirectory) == 0 {
		return nil, ErrRootNotConfigured
	}

	logger := resolveLogger(dependencies.Logger)
	executor, executorError := resolveExecutor(dependencies.Executor, logger)
	if executorError != nil {
		return nil, executorError
	}

	manifestDirectoryName := options.ManifestDirectoryName
	if len(manifestDirectoryName) == 0 {
		manifestDirectoryName = manifest.DefaultDirectoryName
	}

	manifestRepositoryBackend := options.ManifestRepositoryBackend
	if len(manifestRepositoryBackend) == 0 {
		manifestRepositoryBackend = defaultManifestRepositoryBackendConstant
	}

	fileSystem := resolveFileSystem(dependencies.FileSystem)
	rootDirectory := filepath.Clean(options.RootDirectory)

	return &Service{
		rootDirectory:             rootDirectory,
		logger:                    logger,
		fileSystem:                fileSystem,
		registry:                  dependencies.Registry,
		executor:                  executor,
		fetcher:                   resolveFetcher(dependencies.Fetcher, executor),
		discoverer:                resolveDiscoverer(dependencies.Discoverer, dependencies.Registry, manifestDirectoryName),
		store:                     manifest.NewStore(filepath.Join(rootDirectory, manifestDirectoryName), fileSystem),
		orchestrator:              orchestrator.New(dependencies.Registry, logger, orchestrator.Options{WorkspaceRoot: rootDirectory, Workers: options.Workers}),
		manifestRepositoryBackend: manifestRepositoryBackend,
	}, nil
}

// Store exposes the manifest store of the workspace.
func (service *Service) Store() *manifest.Store {
	return service.store
}

// LoadState reads the workspace state from disk.
func (service *Service) LoadState() (State, error) {
	currentName, readError := service.store.ReadCurrentName()
	if readError != nil {
		return State{}, readError
	}
	return State{RootDirectory: service.rootDirectory, CurrentManifestName: currentName}, nil
}

func (service *Service) readCurrent(state State) (*manifest.Manifest, error) {
	return service.store.Read(state.CurrentManifestName)
}

func (service *Service) finish(report Report) Report {
	service.logger.Info(
		operationCompletedMessageConstant,
		zap.String(logFieldOperationConstant, report.Operation),
		zap.String(logFieldManifestNameConstant, report.ManifestName),
		zap.String(logFieldWorkspaceRootConstant, service.rootDirectory),
		zap.Int(logFieldRepositoryCountConstant, len(report.Results)),
		zap.Int(logFieldFailureCountConstant, len(report.Results.Failures())),
	)
	return report
}

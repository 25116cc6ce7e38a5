package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/wsm/internal/faults"
	"github.com/temirov/wsm/internal/manifest"
	"github.com/temirov/wsm/internal/vcs"
)

const (
	// DefaultWorkerCount bounds concurrent repository actions when no limit is configured.
	DefaultWorkerCount = 4

	backendUnavailableTemplateConstant      = "backend %s is not available"
	repositoriesUnavailableTemplateConstant = "no usable backend for %s"
	repositoryNotManagedMessageConstant     = "repository is not part of the manifest"
	cancelledMessageConstant                = "not started because the operation was cancelled"
	actionPanicTemplateConstant             = "action panicked: %v"
	repositoryListSeparatorConstant         = ", "
	repositoryStartedMessageConstant        = "repository action started"
	repositoryCompletedMessageConstant      = "repository action completed"
	repositoryFailedMessageConstant         = "repository action failed"
	backendResolvedMessageConstant          = "repository backend identified"
	logFieldRepositoryPathConstant          = "repository_path"
	logFieldBackendConstant                 = "backend"
	logFieldFaultTypeConstant               = "fault_type"
	logFieldFaultMessageConstant            = "fault_message"
)

// BackendResolver identifies and looks up backends. *vcs.Registry satisfies it.
type BackendResolver interface {
	Lookup(name string) (vcs.Backend, bool)
	Identify(executionContext context.Context, repositoryPath string) (vcs.Identification, error)
}

// Target is everything an action needs to operate on one repository.
type Target struct {
	Path      string
	Directory string
	Entry     manifest.Entry
	Backend   vcs.Backend
}

// Action operates on one repository.
type Action func(executionContext context.Context, target Target) (vcs.Output, error)

// Step binds an action to a manifest path.
type Step struct {
	Path   string
	Action Action
}

// Options configures an Orchestrator.
type Options struct {
	WorkspaceRoot string
	Workers       int
}

// Orchestrator runs actions across the repositories of a manifest.
type Orchestrator struct {
	resolver      BackendResolver
	logger        *zap.Logger
	workspaceRoot string
	workers       int
}

// New constructs an Orchestrator.
func New(resolver BackendResolver, logger *zap.Logger, options Options) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := options.Workers
	if workers <= 0 {
		workers = DefaultWorkerCount
	}
	return &Orchestrator{resolver: resolver, logger: logger, workspaceRoot: options.WorkspaceRoot, workers: workers}
}

// Directory converts a manifest path into a directory on disk.
func (orchestrator *Orchestrator) Directory(repositoryPath string) string {
	return filepath.Join(orchestrator.workspaceRoot, filepath.FromSlash(repositoryPath))
}

// ResolveBackend returns the backend of the entry at repositoryPath, identifying the
// directory and caching the result on the entry when its VCS is unset.
func (orchestrator *Orchestrator) ResolveBackend(executionContext context.Context, workspaceManifest *manifest.Manifest, repositoryPath string) (vcs.Backend, error) {
	entry, exists := workspaceManifest.Get(repositoryPath)
	if !exists {
		return nil, faults.New(faults.KindInvalidRepositoryPath, repositoryNotManagedMessageConstant).WithPath(repositoryPath)
	}

	if len(entry.VCS) == 0 {
		identification, identifyError := orchestrator.resolver.Identify(executionContext, orchestrator.Directory(repositoryPath))
		if identifyError != nil {
			return nil, identifyError
		}
		entry.VCS = identification.VCS
		workspaceManifest.SetVCS(repositoryPath, identification.VCS)
		orchestrator.logger.Debug(backendResolvedMessageConstant, zap.String(logFieldRepositoryPathConstant, repositoryPath), zap.String(logFieldBackendConstant, entry.VCS))
	}

	backend, registered := orchestrator.resolver.Lookup(entry.VCS)
	if !registered {
		return nil, faults.Newf(faults.KindBackendUnavailable, backendUnavailableTemplateConstant, entry.VCS).WithPath(repositoryPath)
	}
	return backend, nil
}

// Resolve checks that every entry has a usable backend before any repository is touched.
// The returned error names every repository that failed.
func (orchestrator *Orchestrator) Resolve(executionContext context.Context, workspaceManifest *manifest.Manifest) error {
	return orchestrator.ResolvePaths(executionContext, workspaceManifest, workspaceManifest.Paths())
}

// ResolvePaths is Resolve restricted to repositoryPaths.
func (orchestrator *Orchestrator) ResolvePaths(executionContext context.Context, workspaceManifest *manifest.Manifest, repositoryPaths []string) error {
	unresolvedPaths := make([]string, 0)
	resolutionErrors := make([]error, 0)
	for _, repositoryPath := range repositoryPaths {
		if _, resolveError := orchestrator.ResolveBackend(executionContext, workspaceManifest, repositoryPath); resolveError != nil {
			unresolvedPaths = append(unresolvedPaths, repositoryPath)
			resolutionErrors = append(resolutionErrors, resolveError)
		}
	}
	if len(unresolvedPaths) == 0 {
		return nil
	}
	return faults.Newf(faults.KindBackendUnavailable, repositoriesUnavailableTemplateConstant, strings.Join(unresolvedPaths, repositoryListSeparatorConstant)).WithCause(errors.Join(resolutionErrors...))
}

// Run applies action to every entry of the manifest.
func (orchestrator *Orchestrator) Run(executionContext context.Context, workspaceManifest *manifest.Manifest, action Action) Results {
	paths := workspaceManifest.Paths()
	steps := make([]Step, 0, len(paths))
	for _, repositoryPath := range paths {
		steps = append(steps, Step{Path: repositoryPath, Action: action})
	}
	return orchestrator.RunPlan(executionContext, workspaceManifest, steps)
}

// RunPlan applies each step's action to the manifest entry it names. Backends are
// resolved on the calling goroutine; actions run on the worker pool. Once
// executionContext is cancelled no further actions start, while running ones
// finish under a context that ignores the cancellation.
func (orchestrator *Orchestrator) RunPlan(executionContext context.Context, workspaceManifest *manifest.Manifest, steps []Step) Results {
	results := make(Results, len(steps))
	targets := make([]*Target, len(steps))

	for stepIndex, step := range steps {
		results[stepIndex].Path = step.Path
		entry, _ := workspaceManifest.Get(step.Path)
		backend, resolveError := orchestrator.ResolveBackend(executionContext, workspaceManifest, step.Path)
		if resolveError != nil {
			results[stepIndex].Fault = NewFault(step.Path, entry.URL, resolveError)
			results[stepIndex].Unresolved = true
			orchestrator.logFault(results[stepIndex])
			continue
		}
		resolvedEntry, _ := workspaceManifest.Get(step.Path)
		targets[stepIndex] = &Target{
			Path:      step.Path,
			Directory: orchestrator.Directory(step.Path),
			Entry:     resolvedEntry,
			Backend:   backend,
		}
	}

	detachedContext := context.WithoutCancel(executionContext)
	workerGroup := errgroup.Group{}
	workerGroup.SetLimit(orchestrator.workers)

	for stepIndex, target := range targets {
		if target == nil {
			continue
		}
		if executionContext.Err() != nil {
			results[stepIndex].Fault = orchestrator.cancelledFault(*target)
			continue
		}

		stepIndex, target := stepIndex, target
		action := steps[stepIndex].Action
		workerGroup.Go(func() error {
			if executionContext.Err() != nil {
				results[stepIndex].Fault = orchestrator.cancelledFault(*target)
				return nil
			}
			results[stepIndex].Output, results[stepIndex].Fault = orchestrator.execute(detachedContext, *target, action)
			return nil
		})
	}

	_ = workerGroup.Wait()
	return results
}

func (orchestrator *Orchestrator) execute(executionContext context.Context, target Target, action Action) (output vcs.Output, fault *Fault) {
	defer func() {
		if recovered := recover(); recovered != nil {
			output = vcs.Output{}
			fault = NewFault(target.Path, target.Entry.URL, faults.Newf(faults.KindUnclassified, actionPanicTemplateConstant, recovered))
			orchestrator.logFault(RepositoryResult{Path: target.Path, Fault: fault})
		}
	}()

	orchestrator.logger.Debug(repositoryStartedMessageConstant, zap.String(logFieldRepositoryPathConstant, target.Path), zap.String(logFieldBackendConstant, target.Backend.Name()))
	actionOutput, actionError := action(executionContext, target)
	if actionError != nil {
		fault = NewFault(target.Path, target.Entry.URL, actionError)
		orchestrator.logFault(RepositoryResult{Path: target.Path, Fault: fault})
		return actionOutput, fault
	}
	orchestrator.logger.Debug(repositoryCompletedMessageConstant, zap.String(logFieldRepositoryPathConstant, target.Path))
	return actionOutput, nil
}

func (orchestrator *Orchestrator) cancelledFault(target Target) *Fault {
	return NewFault(target.Path, target.Entry.URL, faults.New(faults.KindCancelled, cancelledMessageConstant))
}

func (orchestrator *Orchestrator) logFault(result RepositoryResult) {
	orchestrator.logger.Debug(
		repositoryFailedMessageConstant,
		zap.String(logFieldRepositoryPathConstant, result.Path),
		zap.String(logFieldFaultTypeConstant, result.Fault.Type),
		zap.String(logFieldFaultMessageConstant, result.Fault.Message),
	)
}

package workspace

import (
	"context"
	"errors"
	"io/fs"
	"sync"

	"github.com/temirov/wsm/internal/faults"
	"github.com/temirov/wsm/internal/manifest"
	"github.com/temirov/wsm/internal/orchestrator"
	"github.com/temirov/wsm/internal/reconcile"
	"github.com/temirov/wsm/internal/vcs"
)

const (
	// OperationCheckout names the checkout report.
	OperationCheckout = "checkout"
	// OperationMerge names the merge report.
	OperationMerge = "merge"
	// OperationStatus names the status report.
	OperationStatus = "status"
	// OperationUpdate names the update report.
	OperationUpdate = "update"

	missingRepositoryWithoutURLMessageConstant = "repository is missing and the manifest records no url to clone"
	outputSeparatorConstant                    = "\n"
)

// Checkout makes name the current manifest and brings every repository to its
// recorded ref, cloning repositories that are missing on disk first.
func (service *Service) Checkout(executionContext context.Context, state State, name string) (State, Report, error) {
	targetManifest, readError := service.store.Read(name)
	if readError != nil {
		return State{}, Report{}, readError
	}
	if resolveError := service.orchestrator.Resolve(executionContext, targetManifest); resolveError != nil {
		return State{}, Report{}, resolveError
	}
	if switchError := service.store.WriteCurrentName(name); switchError != nil {
		return State{}, Report{}, switchError
	}

	results := service.orchestrator.Run(executionContext, targetManifest, service.checkoutRepository)

	nextState := State{RootDirectory: service.rootDirectory, CurrentManifestName: name}
	return nextState, service.finish(Report{Operation: OperationCheckout, ManifestName: name, Results: results}), nil
}

func (service *Service) checkoutRepository(executionContext context.Context, target orchestrator.Target) (vcs.Output, error) {
	var output vcs.Output
	if service.isMissing(target.Directory) {
		if len(target.Entry.URL) == 0 {
			return vcs.Output{}, faults.New(faults.KindInvalidRepositoryPath, missingRepositoryWithoutURLMessageConstant).WithPath(target.Path)
		}
		cloneOutput, cloneError := target.Backend.Clone(executionContext, target.Directory, target.Entry.URL)
		if cloneError != nil {
			return cloneOutput, cloneError
		}
		output = cloneOutput
	}

	if len(target.Entry.Ref) == 0 {
		return output, nil
	}
	checkoutOutput, checkoutError := target.Backend.Checkout(executionContext, target.Directory, target.Entry.Ref)
	output = combineOutputs(output, checkoutOutput)
	if checkoutError == nil && len(output.Reference) == 0 {
		output.Reference = target.Entry.Ref
	}
	return output, checkoutError
}

// Merge merges the refs recorded in the manifest called sourceName into the
// current workspace. Source repositories stored under another path are matched
// by URL; repositories unknown to the current manifest are added to it and
// cloned when missing.
func (service *Service) Merge(executionContext context.Context, state State, sourceName string) (Report, error) {
	currentManifest, readError := service.readCurrent(state)
	if readError != nil {
		return Report{}, readError
	}
	sourceManifest, sourceError := service.store.Read(sourceName)
	if sourceError != nil {
		return Report{}, sourceError
	}

	reconciliation, reconcileError := reconcile.Reconcile(currentManifest, sourceManifest)
	if reconcileError != nil {
		return Report{}, reconcileError
	}

	destinationPaths, referencesByDestination := groupMergeReferences(sourceManifest, reconciliation)
	if resolveError := service.orchestrator.ResolvePaths(executionContext, currentManifest, destinationPaths); resolveError != nil {
		return Report{}, resolveError
	}

	if currentManifest.Dirty() {
		if writeError := service.store.Write(state.CurrentManifestName, currentManifest); writeError != nil {
			return Report{}, writeError
		}
		currentManifest.MarkClean()
	}

	insertedPaths := make(map[string]bool, len(reconciliation.Inserted))
	for _, insertedPath := range reconciliation.Inserted {
		insertedPaths[insertedPath] = true
	}

	steps := make([]orchestrator.Step, 0, len(destinationPaths))
	for _, destinationPath := range destinationPaths {
		references := referencesByDestination[destinationPath]
		inserted := insertedPaths[destinationPath]
		steps = append(steps, orchestrator.Step{
			Path: destinationPath,
			Action: func(actionContext context.Context, target orchestrator.Target) (vcs.Output, error) {
				if inserted && service.isMissing(target.Directory) {
					return service.checkoutRepository(actionContext, target)
				}
				return mergeReferences(actionContext, target, references)
			},
		})
	}

	results := service.orchestrator.RunPlan(executionContext, currentManifest, steps)
	return service.finish(Report{Operation: OperationMerge, ManifestName: sourceName, Results: results}), nil
}

// groupMergeReferences lists destination paths in source order and the source refs
// merged into each. Several source entries can land on one destination when
// they share a URL; their merges then run one after another in a single step.
func groupMergeReferences(sourceManifest *manifest.Manifest, reconciliation reconcile.Result) ([]string, map[string][]string) {
	destinationPaths := make([]string, 0, sourceManifest.Len())
	referencesByDestination := make(map[string][]string, sourceManifest.Len())
	for _, sourceEntry := range sourceManifest.Entries() {
		destinationPath := reconciliation.Mapping[sourceEntry.Path]
		if _, seen := referencesByDestination[destinationPath]; !seen {
			destinationPaths = append(destinationPaths, destinationPath)
			referencesByDestination[destinationPath] = make([]string, 0, 1)
		}
		if len(sourceEntry.Ref) > 0 {
			referencesByDestination[destinationPath] = append(referencesByDestination[destinationPath], sourceEntry.Ref)
		}
	}
	return destinationPaths, referencesByDestination
}

func mergeReferences(executionContext context.Context, target orchestrator.Target, references []string) (vcs.Output, error) {
	var output vcs.Output
	for _, reference := range references {
		mergeOutput, mergeError := target.Backend.Merge(executionContext, target.Directory, reference)
		output = combineOutputs(output, mergeOutput)
		if mergeError != nil {
			return output, mergeError
		}
	}
	return output, nil
}

// Status reports the working state of every repository in the current manifest.
func (service *Service) Status(executionContext context.Context, state State) (Report, error) {
	currentManifest, readError := service.readCurrent(state)
	if readError != nil {
		return Report{}, readError
	}
	results := service.orchestrator.Run(executionContext, currentManifest, func(actionContext context.Context, target orchestrator.Target) (vcs.Output, error) {
		return target.Backend.GetStatus(actionContext, target.Directory)
	})
	return service.finish(Report{Operation: OperationStatus, ManifestName: state.CurrentManifestName, Results: results}), nil
}

// Update refreshes the url and ref of every entry of the current manifest from
// the repository on disk and stores the manifest. Entries whose repository
// fails keep their previous values.
func (service *Service) Update(executionContext context.Context, state State) (Report, error) {
	currentManifest, readError := service.readCurrent(state)
	if readError != nil {
		return Report{}, readError
	}

	var refreshedMutex sync.Mutex
	refreshedURLs := make(map[string]string, currentManifest.Len())

	results := service.orchestrator.Run(executionContext, currentManifest, func(actionContext context.Context, target orchestrator.Target) (vcs.Output, error) {
		remoteURL, urlError := target.Backend.GetURL(actionContext, target.Directory)
		if urlError != nil {
			return vcs.Output{}, urlError
		}
		reference, referenceError := target.Backend.GetRef(actionContext, target.Directory)
		if referenceError != nil {
			return vcs.Output{}, referenceError
		}
		refreshedMutex.Lock()
		refreshedURLs[target.Path] = remoteURL
		refreshedMutex.Unlock()
		return vcs.Output{StandardOutput: remoteURL, Reference: reference}, nil
	})

	for _, result := range results {
		if !result.Succeeded() {
			continue
		}
		entry, _ := currentManifest.Get(result.Path)
		entry.URL = refreshedURLs[result.Path]
		entry.Ref = result.Output.Reference
		if setError := currentManifest.Set(entry); setError != nil {
			return Report{}, setError
		}
	}

	if writeError := service.store.Write(state.CurrentManifestName, currentManifest); writeError != nil {
		return Report{}, writeError
	}
	return service.finish(Report{Operation: OperationUpdate, ManifestName: state.CurrentManifestName, Results: results}), nil
}

func (service *Service) isMissing(directory string) bool {
	_, statError := service.fileSystem.Stat(directory)
	return errors.Is(statError, fs.ErrNotExist)
}

func combineOutputs(first vcs.Output, second vcs.Output) vcs.Output {
	combined := vcs.Output{
		StandardOutput: joinNonEmpty(first.StandardOutput, second.StandardOutput),
		StandardError:  joinNonEmpty(first.StandardError, second.StandardError),
		Reference:      second.Reference,
	}
	if len(combined.Reference) == 0 {
		combined.Reference = first.Reference
	}
	return combined
}

func joinNonEmpty(first string, second string) string {
	switch {
	case len(first) == 0:
		return second
	case len(second) == 0:
		return first
	default:
		return first + outputSeparatorConstant + second
	}
}

package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/wsm/internal/faults"
	"github.com/temirov/wsm/internal/manifest"
	"github.com/temirov/wsm/internal/orchestrator"
	"github.com/temirov/wsm/internal/reconcile"
	"github.com/temirov/wsm/internal/vcs"
)

const (
	// OperationBranch names the branch report.
	OperationBranch = "branch"
	// OperationTag names the tag report.
	OperationTag = "tag"

	emptyReferenceNameMessageConstant     = "a branch or tag name is required"
	branchConflictTemplateConstant        = "branch already exists in: %s"
	manifestConflictTemplateConstant      = "manifest %s already exists"
	conflictDescriptionTemplateConstant   = "%s (%s)"
	conflictListSeparatorConstant         = ", "
	branchInspectionErrorTemplateConstant = "unable to inspect branches of %s: %w"
)

// ErrReferenceNameRequired indicates an empty branch or tag name.
var ErrReferenceNameRequired = errors.New(emptyReferenceNameMessageConstant)

// BranchOptions configures Branch.
type BranchOptions struct {
	Name string
	// CreateManifest stores a manifest named after the branch and switches to it.
	CreateManifest bool
	// UpdateManifest records the new branches in the current manifest.
	UpdateManifest bool
}

// Branch creates a branch in every repository of the current manifest. Cascading
// names are resolved per repository against its current ref. When any resolved
// name already exists the operation fails with a naming conflict before any
// repository is changed.
func (service *Service) Branch(executionContext context.Context, state State, options BranchOptions) (State, Report, error) {
	if len(strings.TrimPrefix(options.Name, reconcile.CascadePrefix)) == 0 {
		return State{}, Report{}, ErrReferenceNameRequired
	}

	currentManifest, readError := service.readCurrent(state)
	if readError != nil {
		return State{}, Report{}, readError
	}
	if resolveError := service.orchestrator.Resolve(executionContext, currentManifest); resolveError != nil {
		return State{}, Report{}, resolveError
	}

	branchManifestName := reconcile.ManifestName(options.Name, state.CurrentManifestName)
	if options.CreateManifest {
		if nameError := manifest.ValidateName(branchManifestName); nameError != nil {
			return State{}, Report{}, nameError
		}
		if service.store.Exists(branchManifestName) {
			return State{}, Report{}, faults.Newf(faults.KindNamingConflict, manifestConflictTemplateConstant, branchManifestName)
		}
	}

	resolvedNames, namingError := service.resolveBranchNames(executionContext, currentManifest, options.Name)
	if namingError != nil {
		return State{}, Report{}, namingError
	}

	results := service.orchestrator.Run(executionContext, currentManifest, func(actionContext context.Context, target orchestrator.Target) (vcs.Output, error) {
		branchName := resolvedNames[target.Path]
		output, branchError := target.Backend.CreateBranch(actionContext, target.Directory, branchName)
		if branchError == nil && len(output.Reference) == 0 {
			output.Reference = branchName
		}
		return output, branchError
	})

	if options.UpdateManifest {
		applyReferences(currentManifest, results)
		if writeError := service.store.Write(state.CurrentManifestName, currentManifest); writeError != nil {
			return State{}, Report{}, writeError
		}
	}

	nextState := state
	if options.CreateManifest {
		branchManifest := currentManifest.Clone(branchManifestName)
		applyReferences(branchManifest, results)
		if writeError := service.store.Write(branchManifestName, branchManifest); writeError != nil {
			return State{}, Report{}, writeError
		}
		if switchError := service.store.WriteCurrentName(branchManifestName); switchError != nil {
			return State{}, Report{}, switchError
		}
		nextState.CurrentManifestName = branchManifestName
	}

	return nextState, service.finish(Report{Operation: OperationBranch, ManifestName: nextState.CurrentManifestName, Results: results}), nil
}

func (service *Service) resolveBranchNames(executionContext context.Context, currentManifest *manifest.Manifest, requestedName string) (map[string]string, error) {
	resolvedNames := make(map[string]string, currentManifest.Len())
	conflicts := make([]string, 0)

	for _, repositoryPath := range currentManifest.Paths() {
		backend, backendError := service.orchestrator.ResolveBackend(executionContext, currentManifest, repositoryPath)
		if backendError != nil {
			return nil, backendError
		}
		directory := service.orchestrator.Directory(repositoryPath)

		resolvedName := requestedName
		if reconcile.IsCascading(requestedName) {
			currentReference, referenceError := backend.GetRef(executionContext, directory)
			if referenceError != nil {
				return nil, referenceError
			}
			resolvedName = reconcile.ResolveName(requestedName, currentReference)
		}

		exists, inspectionError := backend.IsBranchCreated(executionContext, directory, resolvedName)
		if inspectionError != nil {
			return nil, fmt.Errorf(branchInspectionErrorTemplateConstant, repositoryPath, inspectionError)
		}
		if exists {
			conflicts = append(conflicts, fmt.Sprintf(conflictDescriptionTemplateConstant, repositoryPath, resolvedName))
		}
		resolvedNames[repositoryPath] = resolvedName
	}

	if len(conflicts) > 0 {
		return nil, faults.Newf(faults.KindNamingConflict, branchConflictTemplateConstant, strings.Join(conflicts, conflictListSeparatorConstant))
	}
	return resolvedNames, nil
}

// Tag creates a tag in every repository of the current manifest, resolving
// cascading names against each repository's current ref.
func (service *Service) Tag(executionContext context.Context, state State, name string) (Report, error) {
	if len(strings.TrimPrefix(name, reconcile.CascadePrefix)) == 0 {
		return Report{}, ErrReferenceNameRequired
	}

	currentManifest, readError := service.readCurrent(state)
	if readError != nil {
		return Report{}, readError
	}
	if resolveError := service.orchestrator.Resolve(executionContext, currentManifest); resolveError != nil {
		return Report{}, resolveError
	}

	results := service.orchestrator.Run(executionContext, currentManifest, func(actionContext context.Context, target orchestrator.Target) (vcs.Output, error) {
		tagName := name
		if reconcile.IsCascading(name) {
			currentReference, referenceError := target.Backend.GetRef(actionContext, target.Directory)
			if referenceError != nil {
				return vcs.Output{}, referenceError
			}
			tagName = reconcile.ResolveName(name, currentReference)
		}
		output, tagError := target.Backend.CreateTag(actionContext, target.Directory, tagName)
		if tagError == nil && len(output.Reference) == 0 {
			output.Reference = tagName
		}
		return output, tagError
	})

	return service.finish(Report{Operation: OperationTag, ManifestName: state.CurrentManifestName, Results: results}), nil
}

// applyReferences records the reference of every successful result on its manifest entry.
func applyReferences(targetManifest *manifest.Manifest, results orchestrator.Results) {
	for _, result := range results {
		if !result.Succeeded() || len(result.Output.Reference) == 0 {
			continue
		}
		entry, exists := targetManifest.Get(result.Path)
		if !exists {
			continue
		}
		entry.Ref = result.Output.Reference
		_ = targetManifest.Set(entry)
	}
}

package vcs

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/temirov/wsm/internal/faults"
)

const (
	repositoryPathMissingMessageConstant      = "repository path does not exist"
	repositoryPathNotDirectoryMessageConstant = "repository path is not a directory"
	repositoryPathUnreadableMessageConstant   = "repository path cannot be inspected"
	unknownRepositoryKindMessageConstant      = "no registered backend recognizes the directory"
	identificationFailedTemplateConstant      = "%s backend could not describe repository"
	backendConfirmationSkippedMessageConstant = "backend confirmation failed; trying next candidate"
	backendConfirmedMessageConstant           = "backend confirmed repository"
	duplicateBackendTemplateConstant          = "backend %s is already registered"
	logFieldBackendConstant                   = "backend"
	logFieldRepositoryPathConstant            = "repository_path"
)

// Identification describes a directory after its backend was confirmed.
type Identification struct {
	URL string
	Ref string
	VCS string
}

// Registry holds the available backends in registration order.
//
// When several backends confirm the same directory the earliest registered one
// wins; there is no other tie-break.
type Registry struct {
	backends []Backend
	logger   *zap.Logger
}

// NewRegistry builds a registry from backends in priority order.
func NewRegistry(logger *zap.Logger, backends ...Backend) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := &Registry{logger: logger}
	for _, backend := range backends {
		if registrationError := registry.Register(backend); registrationError != nil {
			return nil, registrationError
		}
	}
	return registry, nil
}

// Register appends a backend. Names must be unique.
func (registry *Registry) Register(backend Backend) error {
	if _, exists := registry.Lookup(backend.Name()); exists {
		return fmt.Errorf(duplicateBackendTemplateConstant, backend.Name())
	}
	registry.backends = append(registry.backends, backend)
	return nil
}

// Lookup returns the backend registered under name.
func (registry *Registry) Lookup(name string) (Backend, bool) {
	for _, backend := range registry.backends {
		if backend.Name() == name {
			return backend, true
		}
	}
	return nil, false
}

// Names lists registered backend names in registration order.
func (registry *Registry) Names() []string {
	names := make([]string, 0, len(registry.backends))
	for _, backend := range registry.backends {
		names = append(names, backend.Name())
	}
	return names
}

// IsLikely reports whether any registered backend considers directory a probable repository.
func (registry *Registry) IsLikely(directory string) bool {
	for _, backend := range registry.backends {
		if backend.IsLikely(directory) {
			return true
		}
	}
	return false
}

// Identify determines which backend owns repositoryPath and reads its URL and ref.
func (registry *Registry) Identify(executionContext context.Context, repositoryPath string) (Identification, error) {
	if inspectionError := inspectDirectory(repositoryPath); inspectionError != nil {
		return Identification{}, inspectionError
	}

	candidates := make([]Backend, 0, len(registry.backends))
	for _, backend := range registry.backends {
		if backend.IsLikely(repositoryPath) {
			candidates = append(candidates, backend)
		}
	}

	confirmedBackend := registry.confirm(executionContext, repositoryPath, candidates)
	if confirmedBackend == nil {
		return Identification{}, faults.New(faults.KindUnknownRepositoryKind, unknownRepositoryKindMessageConstant).WithPath(repositoryPath)
	}

	remoteURL, urlError := confirmedBackend.GetURL(executionContext, repositoryPath)
	if urlError != nil {
		return Identification{}, describeIdentificationFailure(confirmedBackend, repositoryPath, urlError)
	}

	reference, referenceError := confirmedBackend.GetRef(executionContext, repositoryPath)
	if referenceError != nil {
		return Identification{}, describeIdentificationFailure(confirmedBackend, repositoryPath, referenceError)
	}

	return Identification{URL: remoteURL, Ref: reference, VCS: confirmedBackend.Name()}, nil
}

func (registry *Registry) confirm(executionContext context.Context, repositoryPath string, candidates []Backend) Backend {
	for _, candidate := range candidates {
		confirmed, confirmationError := candidate.IsConfirmed(executionContext, repositoryPath)
		if confirmationError != nil {
			registry.logger.Debug(
				backendConfirmationSkippedMessageConstant,
				zap.String(logFieldBackendConstant, candidate.Name()),
				zap.String(logFieldRepositoryPathConstant, repositoryPath),
				zap.Error(confirmationError),
			)
			continue
		}
		if confirmed {
			registry.logger.Debug(
				backendConfirmedMessageConstant,
				zap.String(logFieldBackendConstant, candidate.Name()),
				zap.String(logFieldRepositoryPathConstant, repositoryPath),
			)
			return candidate
		}
	}
	return nil
}

func inspectDirectory(repositoryPath string) error {
	fileInfo, statError := os.Stat(repositoryPath)
	switch {
	case errors.Is(statError, os.ErrNotExist):
		return faults.New(faults.KindInvalidRepositoryPath, repositoryPathMissingMessageConstant).WithPath(repositoryPath).WithCause(statError)
	case statError != nil:
		return faults.New(faults.KindInvalidRepositoryPath, repositoryPathUnreadableMessageConstant).WithPath(repositoryPath).WithCause(statError)
	case !fileInfo.IsDir():
		return faults.New(faults.KindInvalidRepositoryPath, repositoryPathNotDirectoryMessageConstant).WithPath(repositoryPath)
	default:
		return nil
	}
}

func describeIdentificationFailure(backend Backend, repositoryPath string, cause error) error {
	var classified *faults.Error
	if errors.As(cause, &classified) {
		return classified.WithPath(repositoryPath)
	}
	return faults.Newf(faults.KindBackendOperation, identificationFailedTemplateConstant, backend.Name()).WithPath(repositoryPath).WithCause(cause)
}

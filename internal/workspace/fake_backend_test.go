package workspace_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/temirov/wsm/internal/faults"
	"github.com/temirov/wsm/internal/vcs"
)

const (
	fakeBackendNameConstant      = "fake"
	fakeMarkerFileNameConstant   = ".fakevcs"
	fakeDefaultReferenceConstant = "main"
	fakeStatusOutputConstant     = "nothing to commit"
)

type fakeRepository struct {
	remoteURL string
	reference string
	branches  map[string]bool
	tags      []string
	merged    []string
}

// fakeBackend keeps repository state in memory and marks repositories on disk
// with a marker file so that discovery and identification see them.
type fakeBackend struct {
	mutex        sync.Mutex
	repositories map[string]*fakeRepository
	failures     map[string]error
	clonedFiles  map[string]map[string]string
	clones       []string
	branchCalls  int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		repositories: make(map[string]*fakeRepository),
		failures:     make(map[string]error),
		clonedFiles:  make(map[string]map[string]string),
	}
}

func (backend *fakeBackend) addRepository(directory string, remoteURL string, reference string) error {
	if creationError := os.MkdirAll(directory, 0o755); creationError != nil {
		return creationError
	}
	if writeError := os.WriteFile(filepath.Join(directory, fakeMarkerFileNameConstant), nil, 0o600); writeError != nil {
		return writeError
	}
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	backend.repositories[filepath.Clean(directory)] = &fakeRepository{remoteURL: remoteURL, reference: reference, branches: map[string]bool{reference: true}}
	return nil
}

func (backend *fakeBackend) failIn(directory string, failure error) {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	backend.failures[filepath.Clean(directory)] = failure
}

func (backend *fakeBackend) repository(directory string) (*fakeRepository, error) {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	if failure, exists := backend.failures[filepath.Clean(directory)]; exists {
		return nil, failure
	}
	repository, exists := backend.repositories[filepath.Clean(directory)]
	if !exists {
		return nil, faults.New(faults.KindBackendOperation, "not a fake repository").WithPath(directory)
	}
	return repository, nil
}

func (backend *fakeBackend) snapshot(directory string) fakeRepository {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	repository := backend.repositories[filepath.Clean(directory)]
	if repository == nil {
		return fakeRepository{}
	}
	return *repository
}

func (backend *fakeBackend) Name() string { return fakeBackendNameConstant }

func (backend *fakeBackend) IsLikely(directory string) bool {
	_, statError := os.Stat(filepath.Join(directory, fakeMarkerFileNameConstant))
	return statError == nil
}

func (backend *fakeBackend) IsConfirmed(_ context.Context, directory string) (bool, error) {
	return backend.IsLikely(directory), nil
}

func (backend *fakeBackend) GetURL(_ context.Context, directory string) (string, error) {
	repository, lookupError := backend.repository(directory)
	if lookupError != nil {
		return "", lookupError
	}
	return repository.remoteURL, nil
}

func (backend *fakeBackend) GetRef(_ context.Context, directory string) (string, error) {
	repository, lookupError := backend.repository(directory)
	if lookupError != nil {
		return "", lookupError
	}
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	return repository.reference, nil
}

func (backend *fakeBackend) IsBranchCreated(_ context.Context, directory string, branchName string) (bool, error) {
	repository, lookupError := backend.repository(directory)
	if lookupError != nil {
		return false, lookupError
	}
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	return repository.branches[branchName], nil
}

func (backend *fakeBackend) CreateBranch(_ context.Context, directory string, branchName string) (vcs.Output, error) {
	repository, lookupError := backend.repository(directory)
	if lookupError != nil {
		return vcs.Output{}, lookupError
	}
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	backend.branchCalls++
	repository.branches[branchName] = true
	repository.reference = branchName
	return vcs.Output{StandardError: "Switched to a new branch '" + branchName + "'", Reference: branchName}, nil
}

func (backend *fakeBackend) CreateTag(_ context.Context, directory string, tagName string) (vcs.Output, error) {
	repository, lookupError := backend.repository(directory)
	if lookupError != nil {
		return vcs.Output{}, lookupError
	}
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	repository.tags = append(repository.tags, tagName)
	return vcs.Output{Reference: tagName}, nil
}

func (backend *fakeBackend) Checkout(_ context.Context, directory string, reference string) (vcs.Output, error) {
	repository, lookupError := backend.repository(directory)
	if lookupError != nil {
		return vcs.Output{}, lookupError
	}
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	repository.reference = reference
	repository.branches[reference] = true
	return vcs.Output{Reference: reference}, nil
}

func (backend *fakeBackend) Merge(_ context.Context, directory string, fromReference string) (vcs.Output, error) {
	repository, lookupError := backend.repository(directory)
	if lookupError != nil {
		return vcs.Output{}, lookupError
	}
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	repository.merged = append(repository.merged, fromReference)
	return vcs.Output{StandardOutput: "Merge made by the 'ort' strategy."}, nil
}

func (backend *fakeBackend) Clone(_ context.Context, directory string, remoteURL string) (vcs.Output, error) {
	backend.mutex.Lock()
	files := backend.clonedFiles[remoteURL]
	backend.clones = append(backend.clones, remoteURL)
	backend.mutex.Unlock()

	if addError := backend.addRepository(directory, remoteURL, fakeDefaultReferenceConstant); addError != nil {
		return vcs.Output{}, addError
	}
	for fileName, content := range files {
		if writeError := os.WriteFile(filepath.Join(directory, fileName), []byte(content), 0o600); writeError != nil {
			return vcs.Output{}, writeError
		}
	}
	return vcs.Output{StandardError: "Cloning into '" + filepath.Base(directory) + "'..."}, nil
}

func (backend *fakeBackend) GetStatus(_ context.Context, directory string) (vcs.Output, error) {
	if _, lookupError := backend.repository(directory); lookupError != nil {
		return vcs.Output{}, lookupError
	}
	return vcs.Output{StandardOutput: fakeStatusOutputConstant}, nil
}
